package deploy

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"

	"github.com/micromdm/profilebuilder/profile"
)

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func NewLoggingService(svc Service, logger log.Logger) Service {
	return loggingMiddleware{
		next:   svc,
		logger: logger,
	}
}

func (mw loggingMiddleware) Deploy(ctx context.Context, acct Account, d *profile.Draft) (err error) {
	defer func(begin time.Time) {
		_ = mw.logger.Log(
			"method", "Deploy",
			"server", acct.ServerURL,
			"vendor", acct.Vendor,
			"profile", d.Identifier,
			"err", err,
			"took", time.Since(begin),
		)
	}(time.Now())

	err = mw.next.Deploy(ctx, acct, d)
	return
}

func (mw loggingMiddleware) Push(ctx context.Context, acct Account, name string, mc profile.Mobileconfig) (err error) {
	defer func(begin time.Time) {
		_ = mw.logger.Log(
			"method", "Push",
			"server", acct.ServerURL,
			"vendor", acct.Vendor,
			"name", name,
			"bytes", len(mc),
			"err", err,
			"took", time.Since(begin),
		)
	}(time.Now())

	err = mw.next.Push(ctx, acct, name, mc)
	return
}
