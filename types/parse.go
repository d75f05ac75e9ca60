package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnswerTimeLayout is the server's "yyyy/MM/dd HH:mm:ss zzz" answer time format.
const AnswerTimeLayout = "2006/01/02 15:04:05 -07:00"

// ServerStateError is reported in place of "False" when the server is disabled.
const ServerStateError = "Error"

func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case CommandNone, CommandDrop, CommandPickup, CommandQuery, CommandPickupForce:
		return c, nil
	default:
		return "", fmt.Errorf("unknown command code %q", s)
	}
}

// ParseBoolText parses the "True"/"False" flags used throughout the API.
func ParseBoolText(s string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return v, nil
}

func checkFields(op string, values []string, want int) error {
	if len(values) != want {
		return fmt.Errorf("%s: expected %d fields, got %d", op, want, len(values))
	}
	return nil
}

func parseBools(op string, values []string) ([]bool, error) {
	out := make([]bool, len(values))
	for i, v := range values {
		b, err := ParseBoolText(v)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		out[i] = b
	}
	return out, nil
}

func ParseStateOfEnable(values []string) (StateOfEnable, error) {
	if err := checkFields(OpReadStateOfEnable, values, 4); err != nil {
		return StateOfEnable{}, err
	}
	device, err := parseBools(OpReadStateOfEnable, values[:2])
	if err != nil {
		return StateOfEnable{}, err
	}
	state := StateOfEnable{
		DeviceEnabled: device[0],
		DeviceError:   device[1],
		ServerState:   values[2],
	}
	if !strings.EqualFold(strings.TrimSpace(values[2]), ServerStateError) {
		if state.ServerEnabled, err = ParseBoolText(values[2]); err != nil {
			return StateOfEnable{}, fmt.Errorf("%s[2]: %w", OpReadStateOfEnable, err)
		}
	}
	if state.PassiveMode, err = ParseBoolText(values[3]); err != nil {
		return StateOfEnable{}, fmt.Errorf("%s[3]: %w", OpReadStateOfEnable, err)
	}
	return state, nil
}

func ParseScriptRemain(values []string) (ScriptRemain, error) {
	if err := checkFields(OpReadScriptRemain, values, 4); err != nil {
		return ScriptRemain{}, err
	}
	var secs [4]time.Duration
	for i, v := range values {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return ScriptRemain{}, fmt.Errorf("%s[%d]: invalid integer %q", OpReadScriptRemain, i, v)
		}
		secs[i] = time.Duration(n) * time.Second
	}
	return ScriptRemain{Ready: secs[0], Roll: secs[1], Timeout: secs[2], Answer: secs[3]}, nil
}

// Strings renders the timings in the argument shape of WriteScriptRemain.
func (r ScriptRemain) Strings() []string {
	return []string{
		strconv.Itoa(int(r.Ready / time.Second)),
		strconv.Itoa(int(r.Roll / time.Second)),
		strconv.Itoa(int(r.Timeout / time.Second)),
		strconv.Itoa(int(r.Answer / time.Second)),
	}
}

func ParseLastOperate(values []string) (LastOperate, error) {
	if err := checkFields(OpReadQueryLastOperate, values, 2); err != nil {
		return LastOperate{}, err
	}
	busy, err := ParseBoolText(values[1])
	if err != nil {
		return LastOperate{}, fmt.Errorf("%s[1]: %w", OpReadQueryLastOperate, err)
	}
	return LastOperate{Phase: Phase(strings.TrimSpace(values[0])), Busy: busy}, nil
}

func ParseFlowOfOperate(values []string) (FlowOfOperate, error) {
	if err := checkFields(OpReadFlowOfOperate, values, 5); err != nil {
		return FlowOfOperate{}, err
	}
	flags, err := parseBools(OpReadFlowOfOperate, values)
	if err != nil {
		return FlowOfOperate{}, err
	}
	return FlowOfOperate{
		Ready:    flags[0],
		Rolling:  flags[1],
		Answer:   flags[2],
		Complete: flags[3],
		Error:    flags[4],
	}, nil
}

func ParseAnswer(values []string) (Answer, error) {
	if err := checkFields(OpReadGetAnswer, values, 6); err != nil {
		return Answer{}, err
	}
	var ints [3]int
	for i := range ints {
		n, err := strconv.Atoi(strings.TrimSpace(values[i]))
		if err != nil {
			return Answer{}, fmt.Errorf("%s[%d]: invalid integer %q", OpReadGetAnswer, i, values[i])
		}
		ints[i] = n
	}
	at, err := time.Parse(AnswerTimeLayout, strings.TrimSpace(values[3]))
	if err != nil {
		return Answer{}, fmt.Errorf("%s[3]: invalid time %q: %w", OpReadGetAnswer, values[3], err)
	}
	var coords [2]float64
	for i := range coords {
		f, err := strconv.ParseFloat(strings.TrimSpace(values[4+i]), 64)
		if err != nil {
			return Answer{}, fmt.Errorf("%s[%d]: invalid float %q", OpReadGetAnswer, 4+i, values[4+i])
		}
		coords[i] = f
	}
	return Answer{
		Number: ints[0],
		X:      ints[1],
		Y:      ints[2],
		Time:   at,
		BallX:  coords[0],
		BallY:  coords[1],
	}, nil
}
