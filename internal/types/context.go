package types

import "context"

type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxUserID    ContextKey = "ctx_user_id"
	CtxIsAdmin   ContextKey = "ctx_is_admin"
)

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(CtxRequestID).(string); ok {
		return id
	}
	return ""
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(CtxUserID).(string); ok {
		return id
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	if admin, ok := ctx.Value(CtxIsAdmin).(bool); ok {
		return admin
	}
	return false
}
