package llm

import "context"

// CallRecorder receives the outcome of every completion call.
type CallRecorder interface {
	RecordLLMCall(model string, err error)
}

// Instrument wraps a client so each Complete call is reported to the
// recorder. The wrapped client is returned unchanged when recorder is nil.
func Instrument(client Client, recorder CallRecorder) Client {
	if recorder == nil {
		return client
	}
	return &instrumentedClient{client: client, recorder: recorder}
}

type instrumentedClient struct {
	client   Client
	recorder CallRecorder
}

func (c *instrumentedClient) Complete(ctx context.Context, prompt string) (string, error) {
	reply, err := c.client.Complete(ctx, prompt)
	c.recorder.RecordLLMCall(c.client.Model(), err)
	return reply, err
}

func (c *instrumentedClient) Model() string { return c.client.Model() }
