package poll

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/alfachiu/rollball-api-tcp/tool"
)

// Console output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Console prints calls as they complete. The text format mirrors the
// reference demo: an "N." header per cycle, then "Name: v1, v2".
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func NewConsole(w io.Writer, format string) *Console {
	if format == "" {
		format = FormatText
	}
	return &Console{w: w, format: format}
}

func (c *Console) Begin(iteration int) {
	if c.format != FormatText {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, "%d.\n", iteration); err != nil {
		tool.DefaultLogger.Errorf("Failed to write cycle %d: %v", iteration, err)
	}
}

func (c *Console) Record(call Call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.format == FormatJSON {
		payload, err := sonic.Marshal(call)
		if err != nil {
			tool.DefaultLogger.Errorf("Failed to marshal call %s: %v", call.Operation, err)
			return
		}
		_, err = c.w.Write(append(payload, '\n'))
		c.logWrite(call.Operation, err)
		return
	}
	var err error
	if call.Err != nil {
		_, err = fmt.Fprintf(c.w, "%s: error: %v\n", call.Operation, call.Err)
	} else {
		_, err = fmt.Fprintf(c.w, "%s: %s\n", call.Operation, strings.Join(call.Values, ", "))
	}
	c.logWrite(call.Operation, err)
}

func (c *Console) logWrite(op string, err error) {
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to write call %s: %v", op, err)
	}
}
