package chat_notifier

import (
	"context"
	"fmt"

	kafkax "github.com/NordCoder/Nightwatch/internal/repository/kafka"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

type Subscriber interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

type Controller struct {
	Log *zap.Logger
	Sub Subscriber
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	return c.Sub.Consume(ctx, c.handler())
}

func (c *Controller) handler() kafkax.Handler {
	return kafkax.ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, key []byte, s *structpb.Struct) error {
			rep, err := kafkax.ReportFromStruct(s)
			if err != nil {
				c.Log.Warn("report-ready: bad payload", zap.ByteString("key", key), zap.Error(err))
				return fmt.Errorf("%w: %v", kafkax.ErrPoisonMessage, err)
			}
			return c.UC.HandleReport(ctx, rep)
		},
	)
}
