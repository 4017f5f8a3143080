package handler

import (
	"context"

	"github.com/careroster/careroster/internal/api/middleware"
)

// GetStaffID retrieves the authenticated staff ID from the context.
// This is a convenience wrapper around middleware.GetStaffID.
func GetStaffID(ctx context.Context) string {
	return middleware.GetStaffID(ctx)
}

// GetStaffRole retrieves the authenticated staff role from the context.
func GetStaffRole(ctx context.Context) string {
	return middleware.GetStaffRole(ctx)
}
