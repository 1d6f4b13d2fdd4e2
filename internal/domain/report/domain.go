package report

import "time"

type Report struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Lanes      []string  `json:"lanes"`
	Failures   int       `json:"failures"`
	Recoveries int       `json:"recoveries"`
	CreatedAt  time.Time `json:"created_at"`
}

type Delivery struct {
	ID          int64     `json:"id"`
	ReportID    string    `json:"report_id"`
	Destination string    `json:"destination"` // matrix, webhook, email
	Target      string    `json:"target"`      // room id, url, address
	DeliveredAt time.Time `json:"delivered_at"`
	Error       string    `json:"error"`
}
