package resolve

import "context"

// DestinationResolver resolves destination strings. Dispatchers and command
// handlers accept this interface rather than the concrete *Resolver type.
type DestinationResolver interface {
	Resolve(ctx context.Context, text string, includeTree bool) (Destination, error)
}

// Compile-time assertion: *Resolver satisfies DestinationResolver.
var _ DestinationResolver = (*Resolver)(nil)
