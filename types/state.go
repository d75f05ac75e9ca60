package types

import "time"

// StateOfEnable is the typed view of ReadStateOfEnable.
type StateOfEnable struct {
	DeviceEnabled bool   `json:"device_enabled"`
	DeviceError   bool   `json:"device_error"`
	ServerEnabled bool   `json:"server_enabled"`
	ServerState   string `json:"server_state"` // raw flag, "Error" when the server is disabled
	PassiveMode   bool   `json:"passive_mode"`
}

// ScriptRemain holds the automatic script timings, in whole seconds on the wire.
type ScriptRemain struct {
	Ready   time.Duration `json:"ready"`   // ball ready until the drop command
	Roll    time.Duration `json:"roll"`    // drop command until roll detection starts
	Timeout time.Duration `json:"timeout"` // ball stopped off-grid until an error answer
	Answer  time.Duration `json:"answer"`  // answer until the pickup command
}

// LastOperate is the typed view of ReadQueryLastOperate.
type LastOperate struct {
	Phase Phase `json:"phase"`
	Busy  bool  `json:"busy"` // commands written while busy have no effect
}

// FlowOfOperate is the typed view of ReadFlowOfOperate.
type FlowOfOperate struct {
	Ready    bool `json:"ready"`
	Rolling  bool `json:"rolling"`
	Answer   bool `json:"answer"`
	Complete bool `json:"complete"`
	Error    bool `json:"error"`
}

// Answer is the typed view of ReadGetAnswer.
type Answer struct {
	Number int       `json:"number"` // 1..12
	X      int       `json:"x"`      // 0..11
	Y      int       `json:"y"`      // 0..11
	Time   time.Time `json:"time"`
	BallX  float64   `json:"ball_x"` // last ball coordinates, used by force pickup
	BallY  float64   `json:"ball_y"`
}
