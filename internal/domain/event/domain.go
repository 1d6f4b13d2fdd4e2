package event

import (
	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/result"
)

type Direction int

const (
	Failure Direction = iota + 1
	Recovery
)

func (d Direction) String() string {
	switch d {
	case Failure:
		return "failure"
	case Recovery:
		return "recovery"
	default:
		return "unknown"
	}
}

type Event struct {
	Lane      lane.Lane     `json:"lane"`
	Result    result.Result `json:"result"`
	Direction Direction     `json:"direction"`
}
