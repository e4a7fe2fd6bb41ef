package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeduper_Seen(t *testing.T) {
	d := NewDeduper(time.Minute)
	defer d.Close()

	assert.False(t, d.Seen("WO-1", "SALT|B1|5"))
	assert.True(t, d.Seen("WO-1", "SALT|B1|5"))
	assert.False(t, d.Seen("WO-2", "SALT|B1|5"))
}

func TestDeduper_Expires(t *testing.T) {
	d := NewDeduper(50 * time.Millisecond)
	defer d.Close()

	assert.False(t, d.Seen("WO-1", "SALT|B1|5"))
	assert.True(t, d.Seen("WO-1", "SALT|B1|5"))

	time.Sleep(80 * time.Millisecond)
	assert.False(t, d.Seen("WO-1", "SALT|B1|5"))
}

func TestDeduper_RepeatDoesNotExtend(t *testing.T) {
	d := NewDeduper(100 * time.Millisecond)
	defer d.Close()

	assert.False(t, d.Seen("WO-1", "X"))
	time.Sleep(60 * time.Millisecond)
	assert.True(t, d.Seen("WO-1", "X"))
	time.Sleep(60 * time.Millisecond)
	assert.False(t, d.Seen("WO-1", "X"))
}

func TestDeduper_Forget(t *testing.T) {
	d := NewDeduper(time.Minute)
	defer d.Close()

	assert.False(t, d.Seen("WO-1", "X"))
	d.Forget("WO-1", "X")
	assert.False(t, d.Seen("WO-1", "X"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("WO-1", "X"), Key("WO-1", "X"))
	assert.NotEqual(t, Key("WO-1", "X"), Key("WO-1", "Y"))
	assert.Contains(t, Key("WO-1", "X"), "scan:WO-1:")
}
