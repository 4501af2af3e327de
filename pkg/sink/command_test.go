package sink

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/itohio/goscale/pkg/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu    sync.Mutex
	tares int
	refs  []int32
}

func (f *fakeController) Tare() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tares++
}

func (f *fakeController) Calibrate(ref int32) (float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs = append(f.refs, ref)
	if ref == 0 {
		return 0, scale.ErrInvalidReference
	}
	return 1000 / float32(ref), nil
}

func (f *fakeController) counts() (int, []int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tares, append([]int32(nil), f.refs...)
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want Reply
	}{
		{name: "tare", cmd: Command{Type: CommandTare}, want: Reply{Type: "tare", OK: true}},
		{name: "calibrate", cmd: Command{Type: CommandCalibrate, Reference: 100}, want: Reply{Type: "calibrate", OK: true, ScaleFactor: 10}},
		{name: "calibrate zero", cmd: Command{Type: CommandCalibrate}, want: Reply{Type: "calibrate", Error: scale.ErrInvalidReference.Error()}},
		{name: "unknown", cmd: Command{Type: "reboot"}, want: Reply{Type: "reboot", Error: `unknown command "reboot"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Execute(&fakeController{}, tt.cmd))
		})
	}
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"calibrate","reference":250}`))
	require.NoError(t, err)
	assert.Equal(t, Command{Type: CommandCalibrate, Reference: 250}, cmd)

	_, err = ParseCommand([]byte(`tare`))
	assert.Error(t, err)
}

func TestHandleCommand(t *testing.T) {
	ctl := &fakeController{}

	var reply Reply
	require.NoError(t, json.Unmarshal(handleCommand(ctl, []byte(`{"type":"tare"}`)), &reply))
	assert.True(t, reply.OK)

	require.NoError(t, json.Unmarshal(handleCommand(ctl, []byte(`{`)), &reply))
	assert.Equal(t, "error", reply.Type)
	assert.False(t, reply.OK)

	tares, _ := ctl.counts()
	assert.Equal(t, 1, tares)
}
