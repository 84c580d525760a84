package cluster

import (
	"fmt"
	"os"

	consul "github.com/hashicorp/consul/api"
)

// Registration descreve como o serviço de chat aparece no catálogo do Consul.
type Registration struct {
	ServiceName string
	Port        int
	HealthPath  string
	Tags        []string
}

// RegisterService registra o serviço no agente Consul com um check HTTP e
// devolve uma função que remove o registro (chamada no shutdown).
func RegisterService(client *consul.Client, reg Registration) (deregister func() error, err error) {
	// O hostname do contêiner serve para criar um ID único por instância.
	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	serviceID := fmt.Sprintf("%s-%s", reg.ServiceName, hostname)
	healthPath := reg.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}

	registration := &consul.AgentServiceRegistration{
		ID:   serviceID,
		Name: reg.ServiceName,
		Port: reg.Port,
		Tags: reg.Tags,
		// Sem Address: o agente usa o IP de quem está registrando.
		Check: &consul.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d%s", hostname, reg.Port, healthPath),
			Timeout:                        "5s",
			Interval:                       "10s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := client.Agent().ServiceRegister(registration); err != nil {
		return nil, fmt.Errorf("register service %s: %w", serviceID, err)
	}

	return func() error {
		return client.Agent().ServiceDeregister(serviceID)
	}, nil
}
