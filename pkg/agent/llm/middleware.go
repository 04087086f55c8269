package llm

import "context"

// Middleware wraps an LLMClient with additional behavior.
type Middleware func(next LLMClient) LLMClient

// ClientFunc adapts a function to the LLMClient interface.
type ClientFunc func(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

// Complete implements LLMClient.
func (f ClientFunc) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	return f(ctx, in)
}

// Chain applies middlewares to a base client. The first middleware in the
// list becomes the outermost wrapper.
func Chain(base LLMClient, middlewares ...Middleware) LLMClient {
	client := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}
