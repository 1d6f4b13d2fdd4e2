package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ report.Publisher = (*ReportEventsKafka)(nil)

// KindReport tags messages carrying a rendered report.
const KindReport = "report.v1"

type ReportEventsKafka struct {
	p *Producer
}

func NewReportEventsKafka(p *Producer) *ReportEventsKafka { return &ReportEventsKafka{p: p} }

func (e *ReportEventsKafka) Publish(ctx context.Context, r *report.Report) error {
	msg, err := ReportToStruct(r)
	if err != nil {
		return err
	}
	return e.p.Publish(ctx, KindReport, []byte(r.ID), msg)
}

func ReportToStruct(r *report.Report) (*structpb.Struct, error) {
	lanes := make([]any, 0, len(r.Lanes))
	for _, l := range r.Lanes {
		lanes = append(lanes, l)
	}
	s, err := structpb.NewStruct(map[string]any{
		"id":         r.ID,
		"text":       r.Text,
		"lanes":      lanes,
		"failures":   r.Failures,
		"recoveries": r.Recoveries,
		"created_at": r.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return s, nil
}

func ReportFromStruct(s *structpb.Struct) (*report.Report, error) {
	f := s.GetFields()
	r := &report.Report{
		ID:         f["id"].GetStringValue(),
		Text:       f["text"].GetStringValue(),
		Failures:   int(f["failures"].GetNumberValue()),
		Recoveries: int(f["recoveries"].GetNumberValue()),
	}
	if r.ID == "" {
		return nil, errors.New("report message without id")
	}
	for _, v := range f["lanes"].GetListValue().GetValues() {
		r.Lanes = append(r.Lanes, v.GetStringValue())
	}
	if ts := f["created_at"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("decode created_at: %w", err)
		}
		r.CreatedAt = t
	}
	return r, nil
}
