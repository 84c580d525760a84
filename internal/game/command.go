package game

// Command identifica uma ação do mini-jogo disparada por texto no chat.
type Command string

const (
	CommandNone      Command = ""
	CommandCatch     Command = "catch"
	CommandSell      Command = "sell"
	CommandInventory Command = "inventory"
)

// commandAliases mapeia o texto exato (já sem espaços nas pontas) para o comando.
// Os apelidos em coreano são os comandos dos clientes antigos.
var commandAliases = map[string]Command{
	"catch":     CommandCatch,
	"낚시하기":      CommandCatch,
	"sell":      CommandSell,
	"판매":        CommandSell,
	"inventory": CommandInventory,
	"인벤토리":      CommandInventory,
}

// ParseCommand devolve o comando para o texto, ou CommandNone se for chat comum.
// A comparação é exata: "Catch" ou "catch now" são chat.
func ParseCommand(text string) Command {
	return commandAliases[text]
}
