package common

import "context"

type ctxKey string

const (
	vendorIDKey ctxKey = "auth/vendor-id"
	userIDKey   ctxKey = "auth/user-id"
)

// WithVendorID stores the authenticated vendor identifier on the provided context.
func WithVendorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, vendorIDKey, id)
}

// VendorID extracts the authenticated vendor identifier from the context if present.
func VendorID(ctx context.Context) (string, bool) {
	v := ctx.Value(vendorIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithUserID stores the acting user (cashier) identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the acting user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
