package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	calls   []string
	steps   int32
	target  float32
	pre     bool
	tareErr error
	gain    bool
}

func (c *fakeController) Press() { c.calls = append(c.calls, "press") }

func (c *fakeController) Step(n int32) {
	c.calls = append(c.calls, "step")
	c.steps += n
}

func (c *fakeController) SetTarget(g float32) bool {
	c.calls = append(c.calls, "target")
	if !c.pre {
		return false
	}
	c.target = g
	return true
}

func (c *fakeController) Tare() error {
	c.calls = append(c.calls, "tare")
	return c.tareErr
}

func (c *fakeController) Tune() bool {
	c.calls = append(c.calls, "tune")
	return c.pre
}

func (c *fakeController) ApplySuggestedGain() bool {
	c.calls = append(c.calls, "apply")
	return c.gain
}

func (c *fakeController) Debug()   { c.calls = append(c.calls, "debug") }
func (c *fakeController) Verbose() { c.calls = append(c.calls, "verbose") }

type fakeReader struct {
	buf []byte
}

func (r *fakeReader) Buffered() int {
	return len(r.buf)
}

func (r *fakeReader) ReadByte() (byte, error) {
	if len(r.buf) == 0 {
		return 0, errors.New("empty")
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b, nil
}

func TestConsole(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
		steps    int32
		err      string
	}{
		{"Press", "B", []string{"press"}, 0, ""},
		{"Steps", "+++-", []string{"step", "step", "step", "step"}, 2, ""},
		{"IgnoresUnknown", "x\r\nBz", []string{"press"}, 0, ""},
		{"Multiple", "TDV", []string{"tare", "debug", "verbose"}, 0, ""},
		{"Tune", "OA", []string{"tune", "apply"}, 0, "no suggested gain"},
		{"InvalidTarget", "t3x6", []string{}, 0, "invalid input: 3x6"},
		// the bytes after a command flag are its input, even if they are flags themselves
		{"InputIsNotACommand", "tB12", []string{}, 0, "invalid input: B12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeController{pre: true}
			console := NewConsole(c, &fakeReader{buf: []byte(tt.input)})

			err := console.Poll()
			if tt.err != "" {
				assert.EqualError(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}

			if len(tt.expected) == 0 {
				assert.Empty(t, filter(c.calls, "target"))
			} else {
				assert.Equal(t, tt.expected, c.calls)
			}
			assert.Equal(t, tt.steps, c.steps)
		})
	}
}

func TestConsoleSetTarget(t *testing.T) {
	c := &fakeController{pre: true}
	r := &fakeReader{buf: []byte("t036")}
	console := NewConsole(c, r)

	require.NoError(t, console.Poll())
	assert.InDelta(t, 36.0, c.target, 1e-6)

	c.pre = false
	r.buf = []byte("t040")
	assert.Error(t, console.Poll())
	assert.InDelta(t, 36.0, c.target, 1e-6)
}

func TestConsolePartialInput(t *testing.T) {
	c := &fakeController{pre: true}
	r := &fakeReader{buf: []byte("t0")}
	console := NewConsole(c, r)

	require.NoError(t, console.Poll())
	assert.Empty(t, c.calls)

	r.buf = []byte("28B")
	require.NoError(t, console.Poll())
	assert.Equal(t, []string{"target", "press"}, c.calls)
	assert.InDelta(t, 28.0, c.target, 1e-6)
}

func TestConsoleTareError(t *testing.T) {
	c := &fakeController{tareErr: errors.New("cannot tare while extracting")}
	console := NewConsole(c, &fakeReader{buf: []byte("T")})

	assert.EqualError(t, console.Poll(), "cannot tare while extracting")
}

func filter(calls []string, name string) []string {
	var result []string
	for _, c := range calls {
		if c == name {
			result = append(result, c)
		}
	}
	return result
}
