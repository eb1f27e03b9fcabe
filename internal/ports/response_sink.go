package ports

import "context"

type ResponseSink interface {
	Forward(ctx context.Context, text string) error
}
