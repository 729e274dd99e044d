package servicebusclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// AzureServiceBusClient implements ServiceBusClient using Azure Service Bus.
// Senders are created once per destination and reused.
type AzureServiceBusClient struct {
	client *azservicebus.Client
	logger logging.Logger

	mu      sync.Mutex
	senders map[string]*azservicebus.Sender
}

// NewAzureServiceBusClient creates a new Azure Service Bus client.
// namespace is the short namespace name, without the servicebus.windows.net suffix.
// When useManagedIdentity is set, or no shared access key is given, the
// default Azure credential chain is used.
func NewAzureServiceBusClient(namespace, keyName, keyValue string, useManagedIdentity bool, logger logging.Logger) (*AzureServiceBusClient, error) {
	var (
		client *azservicebus.Client
		err    error
	)
	if useManagedIdentity || keyName == "" || keyValue == "" {
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", credErr)
		}
		client, err = azservicebus.NewClient(fmt.Sprintf("%s.servicebus.windows.net", namespace), cred, nil)
	} else {
		connStr := fmt.Sprintf("Endpoint=sb://%s.servicebus.windows.net/;SharedAccessKeyName=%s;SharedAccessKey=%s",
			namespace, keyName, keyValue)
		client, err = azservicebus.NewClientFromConnectionString(connStr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	return &AzureServiceBusClient{
		client:  client,
		logger:  logger.Named("servicebus").With(logging.NewField("namespace", namespace)),
		senders: make(map[string]*azservicebus.Sender),
	}, nil
}

func (a *AzureServiceBusClient) sender(destination string) (*azservicebus.Sender, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.senders[destination]; ok {
		return s, nil
	}
	s, err := a.client.NewSender(destination, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender for %s: %w", destination, err)
	}
	a.senders[destination] = s
	return s, nil
}

func toSBMessage(msg OutgoingMessage) *azservicebus.Message {
	out := &azservicebus.Message{Body: msg.Body}
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	out.MessageID = &id
	if msg.Subject != "" {
		subject := msg.Subject
		out.Subject = &subject
	}
	if msg.ContentType != "" {
		contentType := msg.ContentType
		out.ContentType = &contentType
	}
	if len(msg.Properties) > 0 {
		out.ApplicationProperties = make(map[string]interface{}, len(msg.Properties))
		for k, v := range msg.Properties {
			out.ApplicationProperties[k] = v
		}
	}
	return out
}

// Publish packs msgs into as few batches as the sender's size limit allows
// and sends them in order.
func (a *AzureServiceBusClient) Publish(ctx context.Context, destination string, msgs ...OutgoingMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	logger := a.logger.With(
		logging.NewField("operation", "servicebus.publish"),
		logging.NewField("destination", destination),
		logging.NewField("count", len(msgs)),
	)

	sender, err := a.sender(destination)
	if err != nil {
		logger.Error("Failed to create sender", logging.NewField("error", err))
		return err
	}

	batch, err := sender.NewMessageBatch(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to create message batch: %w", err)
	}
	batches := 0
	flush := func() error {
		if batch.NumMessages() == 0 {
			return nil
		}
		if err := sender.SendMessageBatch(ctx, batch, nil); err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
		batches++
		batch, err = sender.NewMessageBatch(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to create message batch: %w", err)
		}
		return nil
	}

	for i, msg := range msgs {
		sbMsg := toSBMessage(msg)
		err := batch.AddMessage(sbMsg, nil)
		if errors.Is(err, azservicebus.ErrMessageTooLarge) && batch.NumMessages() > 0 {
			if err := flush(); err != nil {
				logger.Error("Failed to publish", logging.NewField("error", err))
				return err
			}
			err = batch.AddMessage(sbMsg, nil)
		}
		if err != nil {
			logger.Error("Failed to add message to batch", logging.NewField("error", err))
			return fmt.Errorf("failed to add message %d to batch: %w", i, err)
		}
	}
	if err := flush(); err != nil {
		logger.Error("Failed to publish", logging.NewField("error", err))
		return err
	}

	logger.Debug("Messages published", logging.NewField("batches", batches))
	return nil
}

// Close closes every cached sender and then the AMQP connection.
func (a *AzureServiceBusClient) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for destination, s := range a.senders {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close sender %s: %w", destination, err))
		}
		delete(a.senders, destination)
	}
	if err := a.client.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
