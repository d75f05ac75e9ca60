package types

// Remote operation names as registered on the RollBall server.
const (
	OpHello                = "Hello"
	OpVerify               = "Verify"
	OpReadStateOfEnable    = "ReadStateOfEnable"
	OpReadScriptRemain     = "ReadScriptRemain"
	OpReadQueryLastOperate = "ReadQueryLastOperate"
	OpReadFlowOfOperate    = "ReadFlowOfOperate"
	OpReadGetAnswer        = "ReadGetAnswer"
	OpWriteScriptRemain    = "WriteScriptRemain"
	OpWriteCommand         = "WriteCommand"
)

// PollOrder is the order in which one poll cycle invokes the operations.
// WriteScriptRemain is reserved by the server and never polled.
var PollOrder = []string{
	OpHello,
	OpVerify,
	OpReadStateOfEnable,
	OpReadScriptRemain,
	OpReadQueryLastOperate,
	OpReadFlowOfOperate,
	OpReadGetAnswer,
	OpWriteCommand,
}

// DefaultVerify is the registration the demo client sends: ip, email,
// name, company and notes.
func DefaultVerify() []string {
	return []string{"114.35.45.13", "admin@52farfar.com", "阿管先生", "發財公司", "我在珠海市"}
}

// Command is a WriteCommand code. It travels as its literal text.
type Command string

const (
	CommandNone        Command = "0" // clears the command cached by the server
	CommandDrop        Command = "1"
	CommandPickup      Command = "2"
	CommandQuery       Command = "3" // the server already queries on its own
	CommandPickupForce Command = "9" // pickup after a round ended in error
)

func (c Command) String() string {
	switch c {
	case CommandNone:
		return "none"
	case CommandDrop:
		return "drop"
	case CommandPickup:
		return "pickup"
	case CommandQuery:
		return "query"
	case CommandPickupForce:
		return "pickup-force"
	default:
		return "unknown(" + string(c) + ")"
	}
}

// Phase is the phase code reported by ReadQueryLastOperate.
// The server advises against driving a flow from it; use FlowOfOperate.
type Phase string

const (
	PhaseReady   Phase = "100"
	PhaseRolling Phase = "101"
	PhaseAnswer  Phase = "102"
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseRolling:
		return "rolling"
	case PhaseAnswer:
		return "answer"
	default:
		return "unknown(" + string(p) + ")"
	}
}
