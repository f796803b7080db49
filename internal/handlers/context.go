package handlers

import (
	"context"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

type contextKey string

const (
	accountContextKey   contextKey = "account"
	requestIDContextKey contextKey = "request_id"
)

func SetAccountInContext(ctx context.Context, account *models.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

func GetAccountFromContext(ctx context.Context) *models.Account {
	account, _ := ctx.Value(accountContextKey).(*models.Account)
	return account
}

func SetRequestIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
