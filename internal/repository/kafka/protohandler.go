package kafka

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/proto"
)

func ProtoHandler[M proto.Message](ctor func() M, handle func(context.Context, []byte, M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		msg := ctor()
		if err := proto.Unmarshal(value, msg); err != nil {
			return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
		}
		return handle(ctx, key, msg)
	}
}
