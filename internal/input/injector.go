// Package input implements PointerInjector: translating normalized
// pointer events into synthetic X11 input, grounded directly on the
// teacher's capturer/capturer_event.go InputController.
package input

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"
)

// ScreenSize reports the dimensions pointer coordinates should be
// translated against.
type ScreenSize interface {
	Width() int
	Height() int
}

// Event is a pointer event as received from ControlPlane's "pointer"
// message.
type Event struct {
	U, V    float32
	Pressed bool
	Down    bool
	Up      bool
	Button  int // 0 = primary, 1 = secondary
}

// Injector warps the X11 cursor and synthesizes button press/release
// events via the XTEST extension, pure Go with no cgo, the same
// mechanism as the teacher's InputController.
type Injector struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen ScreenSize
}

// New connects to display and prepares XTEST-based injection against
// screen's current dimensions.
func New(display string, screen ScreenSize) (*Injector, error) {
	c, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}
	if err := xtest.Init(c); err != nil {
		c.Close()
		return nil, err
	}
	root := xproto.Setup(c).Roots[0].Root
	return &Injector{conn: c, root: root, screen: screen}, nil
}

// Inject translates ev's normalized coordinates to absolute pixels, warps
// the cursor there, and presses/releases a button.
func (ij *Injector) Inject(ev Event) {
	w, h := ij.screen.Width(), ij.screen.Height()
	x := int16(clamp(ev.U, 0, 1) * float32(w))
	y := int16(clamp(ev.V, 0, 1) * float32(h))

	xproto.WarpPointer(ij.conn, xproto.Window(0), ij.root, 0, 0, 0, 0, x, y)

	button, ok := x11Button(ev.Button)
	if !ok {
		return // button values other than 0/1 are ignored
	}
	if ev.Down {
		xtest.FakeInput(ij.conn, xproto.ButtonPress, button, 0, ij.root, 0, 0, 0)
	}
	if ev.Up {
		xtest.FakeInput(ij.conn, xproto.ButtonRelease, button, 0, ij.root, 0, 0, 0)
	}
}

// x11Button maps the pointer event's button field (0=primary,
// 1=secondary) to the X11 button numbers XTEST expects (1=left, 3=right).
func x11Button(button int) (byte, bool) {
	switch button {
	case 0:
		return 1, true
	case 1:
		return 3, true
	default:
		return 0, false
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Close releases the X11 connection.
func (ij *Injector) Close() error {
	ij.conn.Close()
	return nil
}
