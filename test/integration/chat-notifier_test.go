//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
	kafkaRepo "github.com/NordCoder/Nightwatch/internal/repository/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatNotifier_DeliversReportOnce(t *testing.T) {
	env := LoadEnv()
	MailhogPurge(t, env.MailhogAPI)
	EnsureTopic(t, env.KafkaBootstrap, env.ReportTopic)
	WaitHealthz(t, env.NotifierHealth)
	db := DBOpen(t, env.DBDSN)

	rep := &report.Report{
		ID:         uuid.NewString(),
		Text:       "Greetings fellow humans! Here is my morning report for the nightlies:\n\n- `2024.01-branch` passed on `0123456789` after having errored last time",
		Lanes:      []string{"nightly:2024.01-branch"},
		Recoveries: 1,
		CreatedAt:  time.Now().UTC(),
	}
	msg, err := kafkaRepo.ReportToStruct(rep)
	require.NoError(t, err)

	Publish(t, env.KafkaBootstrap, env.ReportTopic, kafkaRepo.KindReport, []byte(rep.ID), msg)
	mails := WaitMails(t, env.MailhogAPI, 1)
	assert.Contains(t, mails[0].Subject, "Nightwatch")
	assert.Contains(t, mails[0].Body, "2024.01-branch")
	WaitDeliveries(t, db, rep.ID, 1)

	// a redelivered copy is recognised and not sent again
	Publish(t, env.KafkaBootstrap, env.ReportTopic, kafkaRepo.KindReport, []byte(rep.ID), msg)
	time.Sleep(3 * time.Second)
	mails = WaitMails(t, env.MailhogAPI, 1)
	assert.Len(t, mails, 1)
}

func TestChatNotifier_SkipsForeignKinds(t *testing.T) {
	env := LoadEnv()
	MailhogPurge(t, env.MailhogAPI)
	EnsureTopic(t, env.KafkaBootstrap, env.ReportTopic)
	WaitHealthz(t, env.NotifierHealth)

	msg, err := kafkaRepo.ReportToStruct(&report.Report{ID: uuid.NewString(), Text: "ignored"})
	require.NoError(t, err)
	Publish(t, env.KafkaBootstrap, env.ReportTopic, "something.else", []byte("x"), msg)

	time.Sleep(3 * time.Second)
	mails, err := mailhogMessages(env.MailhogAPI)
	require.NoError(t, err)
	assert.Empty(t, mails)
}
