package network

// Peer é a visão que a lógica do chat tem de uma conexão. *Client implementa;
// os testes usam implementações falsas.
type Peer interface {
	// ID único da conexão (uuid), só para logs e métricas.
	ID() string
	// RemoteAddr é o endereço de rede de origem, "host:porta".
	RemoteAddr() string
	// Send enfileira um frame já serializado. Retorna false se a conexão
	// está fechada ou o buffer de saída está cheio; o frame é perdido.
	Send(data []byte) bool
	// Close encerra a conexão depois de tentar entregar o que já está na fila.
	// Pode ser chamado mais de uma vez.
	Close()
	// Closed informa se Close já foi chamado.
	Closed() bool
}

// EventHandler conecta a rede com a lógica do chat.
// Todos os métodos são chamados pela goroutine do Hub, um de cada vez.
type EventHandler interface {
	// OnConnect é chamado quando um novo cliente se conecta com sucesso.
	OnConnect(p Peer)

	// OnDisconnect é chamado quando um cliente se desconecta.
	OnDisconnect(p Peer)

	// OnMessage é chamado para cada frame válido recebido de um cliente.
	OnMessage(p Peer, msg Message)
}
