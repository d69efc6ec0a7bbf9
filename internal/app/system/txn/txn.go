// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type activeKey struct{}

// Run executes fn inside a MongoDB transaction. The context handed to fn
// carries the session, so every store call made with it joins the
// transaction.
//
// A Run nested inside another Run joins the outer transaction. On deployments
// without transaction support (standalone servers) fn runs once without a
// transaction and a warning is logged.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	if Active(ctx) {
		return fn(ctx)
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			log.Warn("sessions unsupported; running without transaction", zap.Error(err))
			return fn(context.WithValue(ctx, activeKey{}, true))
		}
		return err
	}
	defer sess.EndSession(ctx)

	attempted := false
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		attempted = true
		return nil, fn(context.WithValue(sc, activeKey{}, true))
	})
	if err != nil && IsNotSupported(err) {
		log.Warn("transactions unsupported; running without transaction",
			zap.Bool("callback_started", attempted), zap.Error(err))
		return fn(context.WithValue(ctx, activeKey{}, true))
	}
	return err
}

// Active reports whether ctx already belongs to a Run.
func Active(ctx context.Context) bool {
	v, _ := ctx.Value(activeKey{}).(bool)
	return v
}

// IsNotSupported reports whether err means the server cannot run multi-document
// transactions: IllegalOperation (20), NoSuchTransaction-era codes 51 and 263,
// or a driver message naming two of the transaction keywords.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
