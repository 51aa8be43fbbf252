// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// StaffKey is the context key for the acting staff member's ID.
// Exported so it can be used consistently across packages.
type StaffKey struct{}

// WithStaffID returns a context with the staff ID embedded.
func WithStaffID(ctx context.Context, staffID string) context.Context {
	return context.WithValue(ctx, StaffKey{}, staffID)
}

// StaffFromContext returns the staff ID from context, or empty string if not set.
func StaffFromContext(ctx context.Context) string {
	if v := ctx.Value(StaffKey{}); v != nil {
		return v.(string)
	}
	return ""
}
