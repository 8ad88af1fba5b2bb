package services

import "context"

// persistentContext detaches work that must outlive the request (notifications)
// from the request's cancellation while keeping its values.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
