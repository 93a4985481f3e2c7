package mockbuild

import (
	"context"
	"testing"
	"time"

	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
	"github.com/simbridge/simbridge/pkg/telemetry"
	"github.com/simbridge/simbridge/pkg/transport"
)

func step(t *testing.T, b *Build, commands ...protocol.Command) []outputdata.Payload {
	t.Helper()
	data, err := protocol.MarshalCommands(commands)
	if err != nil {
		t.Fatalf("marshal commands: %v", err)
	}
	raw, err := protocol.DecodeCommands(data)
	if err != nil {
		t.Fatalf("decode commands: %v", err)
	}
	frame, err := b.Step(raw)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	payloads, err := outputdata.ParseAll(frame)
	if err != nil {
		t.Fatalf("parse payloads: %v", err)
	}
	return payloads
}

func find[T outputdata.Payload](payloads []outputdata.Payload) (T, bool) {
	for _, p := range payloads {
		if v, ok := p.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func TestVersionHandshake(t *testing.T) {
	b := New()
	payloads := step(t, b, &protocol.SendVersion{})
	v, ok := find[*outputdata.Version](payloads)
	if !ok {
		t.Fatal("expected a version payload")
	}
	if v.BuildVersion != BuildVersion {
		t.Errorf("build version = %q, want %q", v.BuildVersion, BuildVersion)
	}
}

func TestFrameAdvancesOnEmptyCommandList(t *testing.T) {
	b := New()
	if _, err := b.Step(nil); err != nil {
		t.Fatalf("step: %v", err)
	}
	if _, err := b.Step(nil); err != nil {
		t.Fatalf("step: %v", err)
	}
	if b.frame != 2 {
		t.Errorf("frame = %d, want 2", b.frame)
	}
}

func TestGravityPullsObjectDown(t *testing.T) {
	b := New()
	step(t, b,
		&protocol.CreateEmptyRoom{Width: 12, Length: 12},
		&protocol.AddObject{Name: "iron_box", ID: 1, Position: protocol.Vector3{Y: 2}},
		&protocol.SendTransforms{Frequency: protocol.FrequencyAlways},
	)
	payloads := step(t, b)
	tr, ok := find[*outputdata.Transforms](payloads)
	if !ok {
		t.Fatal("expected transforms")
	}
	if len(tr.Objects) != 1 || tr.Objects[0].ID != 1 {
		t.Fatalf("unexpected transforms: %+v", tr.Objects)
	}
	if y := tr.Objects[0].Position.Y; y >= 2 {
		t.Errorf("object did not fall, y = %v", y)
	}
}

func TestKinematicObjectIgnoresGravity(t *testing.T) {
	b := New()
	step(t, b,
		&protocol.AddObject{Name: "shelf", ID: 5, Position: protocol.Vector3{Y: 1}},
		&protocol.SetKinematicState{ID: 5, IsKinematic: true},
	)
	payloads := step(t, b, &protocol.SendTransforms{Frequency: protocol.FrequencyOnce})
	tr, ok := find[*outputdata.Transforms](payloads)
	if !ok {
		t.Fatal("expected transforms")
	}
	if y := tr.Objects[0].Position.Y; y != 1 {
		t.Errorf("kinematic object moved, y = %v", y)
	}
}

func TestFloorCollisionStates(t *testing.T) {
	b := New()
	step(t, b,
		&protocol.AddObject{Name: "box", ID: 3, Position: protocol.Vector3{Y: 0.5}},
		&protocol.SendCollisions{
			Enter: true, Stay: true, Exit: true,
			CollisionTypes: []string{protocol.CollisionTypeEnvironment},
		},
	)

	payloads := step(t, b)
	e, ok := find[*outputdata.EnvironmentCollision](payloads)
	if !ok {
		t.Fatal("expected an environment collision")
	}
	if e.State != outputdata.CollisionEnter {
		t.Errorf("first contact state = %v, want enter", e.State)
	}
	if !e.Floor {
		t.Error("expected a floor collision")
	}

	payloads = step(t, b)
	e, ok = find[*outputdata.EnvironmentCollision](payloads)
	if !ok {
		t.Fatal("expected an environment collision")
	}
	if e.State != outputdata.CollisionStay {
		t.Errorf("second contact state = %v, want stay", e.State)
	}
}

func TestObjectCollisionOnOverlap(t *testing.T) {
	b := New()
	step(t, b,
		&protocol.AddObject{Name: "a", ID: 1, Position: protocol.Vector3{Y: 0.5}},
		&protocol.AddObject{Name: "b", ID: 2, Position: protocol.Vector3{X: 0.5, Y: 0.5}},
		&protocol.SetKinematicState{ID: 1, IsKinematic: true},
		&protocol.SetKinematicState{ID: 2, IsKinematic: true},
		&protocol.SendCollisions{
			Enter:          true,
			CollisionTypes: []string{protocol.CollisionTypeObject},
		},
	)
	payloads := step(t, b)
	c, ok := find[*outputdata.Collision](payloads)
	if !ok {
		t.Fatal("expected an object collision")
	}
	if c.State != outputdata.CollisionEnter {
		t.Errorf("state = %v, want enter", c.State)
	}
	if c.ColliderID != 1 || c.CollideeID != 2 {
		t.Errorf("pair = (%d, %d), want (1, 2)", c.ColliderID, c.CollideeID)
	}
}

func TestUnknownCommandProducesLogMessage(t *testing.T) {
	b := New()
	frame, err := b.Step([]protocol.RawCommand{{Type: "warp_reality", Body: []byte(`{}`)}})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	payloads, err := outputdata.ParseAll(frame)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, ok := find[*outputdata.LogMessage](payloads)
	if !ok {
		t.Fatal("expected a log message payload")
	}
	if m.Level != outputdata.LogWarning {
		t.Errorf("level = %v, want warning", m.Level)
	}
	if m.ObjectType != "warp_reality" {
		t.Errorf("object type = %q", m.ObjectType)
	}
}

func TestTerminateEmitsQuitSignal(t *testing.T) {
	b := New()
	payloads := step(t, b, &protocol.Terminate{})
	q, ok := find[*outputdata.QuitSignal](payloads)
	if !ok {
		t.Fatal("expected a quit signal")
	}
	if !q.OK {
		t.Error("quit signal not OK")
	}
	if !b.Terminated() {
		t.Error("build not marked terminated")
	}
}

func TestAudioSourceDecays(t *testing.T) {
	b := New()
	step(t, b, &protocol.AddObject{Name: "box", ID: 9, Position: protocol.Vector3{Y: 0.5}})
	payloads := step(t, b, &protocol.PlayAudioData{
		ID: 9, NumFrames: 882, NumChannels: 1, FrameRate: 44100, WavData: "UklGRg==",
	})
	a, ok := find[*outputdata.AudioSources](payloads)
	if !ok {
		t.Fatal("expected audio sources")
	}
	if !a.Playing(9) {
		t.Error("source 9 should be playing")
	}

	// 882 frames at 44.1kHz is one step worth of audio.
	for i := 0; i < 3; i++ {
		payloads = step(t, b)
	}
	if a, ok := find[*outputdata.AudioSources](payloads); ok && a.Playing(9) {
		t.Error("source 9 should have stopped")
	}
}

func TestAudioLowFrameRate(t *testing.T) {
	b := New()
	step(t, b, &protocol.AddObject{Name: "box", ID: 3, Position: protocol.Vector3{Y: 0.5}})

	// Frame rates below the physics rate must not break clip accounting.
	payloads := step(t, b, &protocol.PlayAudioData{
		ID: 3, NumFrames: 5, NumChannels: 1, FrameRate: 10, WavData: "UklGRg==",
	})
	a, ok := find[*outputdata.AudioSources](payloads)
	if !ok {
		t.Fatal("expected audio sources")
	}
	if !a.Playing(3) {
		t.Error("source 3 should be playing")
	}

	// Half a second of audio spans 25 steps.
	stopped := false
	for i := 0; i < 30; i++ {
		payloads = step(t, b)
		if a, ok := find[*outputdata.AudioSources](payloads); !ok || !a.Playing(3) {
			stopped = true
			break
		}
	}
	if !stopped {
		t.Error("source 3 never stopped")
	}
}

func TestServeOverPipe(t *testing.T) {
	left, right := transport.Pair()
	log, err := telemetry.NewLogger(telemetry.LoggingConfig{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- Serve(context.Background(), New(), right, log)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := protocol.MarshalCommands([]protocol.Command{&protocol.SendVersion{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := left.Send(ctx, data); err != nil {
		t.Fatalf("send: %v", err)
	}
	resp, err := left.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	frame, err := protocol.ParseFrame(resp)
	if err != nil {
		t.Fatalf("parse frame: %v", err)
	}
	if frame.Number != 1 {
		t.Errorf("frame number = %d, want 1", frame.Number)
	}

	data, err = protocol.MarshalCommands([]protocol.Command{&protocol.Terminate{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := left.Send(ctx, data); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := left.Receive(ctx); err != nil {
		t.Fatalf("receive: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not exit after terminate")
	}
}
