package mqtt

import (
	"errors"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
)

type service struct {
	client paho_mqtt.Client
}

func New(client paho_mqtt.Client) *service {
	return &service{
		client: client,
	}
}

func (s *service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(time.Second * 5)
	if res {
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("unable to connect in time")
}

// Publish sends one message and waits for broker acceptance. The panel
// protocol is line-oriented; callers send exactly one declarative object
// per call.
func (s *service) Publish(topic, payload string) error {
	token := s.client.Publish(topic, 0, false, payload)
	res := token.WaitTimeout(time.Second * 10)
	if res {
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}
	return nil
}

// Subscribe registers a handler for a topic filter and returns an
// unsubscribe func. Teardown must call it before the owning model entries
// are released.
func (s *service) Subscribe(topic string, handler func(topic string, payload []byte)) (func(), error) {
	token := s.client.Subscribe(topic, 0, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if res := token.WaitTimeout(time.Second * 5); !res {
		if err := token.Error(); err != nil {
			return nil, err
		}
		return nil, errors.New("unable to subscribe in time")
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	unsubscribe := func() {
		t := s.client.Unsubscribe(topic)
		t.WaitTimeout(time.Second * 5)
	}
	return unsubscribe, nil
}
