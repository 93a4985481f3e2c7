package outputdata

import "github.com/simbridge/simbridge/pkg/protocol"

// SceneRegion is one rectangular region of the scene (a room, in interior
// scenes).
type SceneRegion struct {
	ID     int32
	Center protocol.Vector3
	Bounds protocol.Vector3
}

// SceneRegions holds the regions of the loaded scene.
type SceneRegions struct {
	Regions []SceneRegion
}

// TypeID implements Payload.
func (*SceneRegions) TypeID() string { return IDSceneRegions }

// ParseSceneRegions decodes an "sreg" payload.
func ParseSceneRegions(payload []byte) (*SceneRegions, error) {
	r, err := newReader(payload, IDSceneRegions)
	if err != nil {
		return nil, err
	}
	n := r.count()
	s := &SceneRegions{Regions: make([]SceneRegion, 0, n)}
	for i := 0; i < n; i++ {
		s.Regions = append(s.Regions, SceneRegion{
			ID:     r.i32(),
			Center: r.vec3(),
			Bounds: r.vec3(),
		})
	}
	return s, r.finish()
}

// Encode serializes the payload in build wire layout.
func (s *SceneRegions) Encode() []byte {
	w := newWriter(IDSceneRegions)
	w.u32(uint32(len(s.Regions)))
	for _, reg := range s.Regions {
		w.i32(reg.ID)
		w.vec3(reg.Center)
		w.vec3(reg.Bounds)
	}
	return w.bytes()
}

// AudioSource is the playback state of one audio source.
type AudioSource struct {
	ID      int32
	Playing bool
}

// AudioSources holds the playback state of every audio source in the scene.
// The build emits it as the acknowledgement for play_audio_data commands.
type AudioSources struct {
	Sources []AudioSource
}

// TypeID implements Payload.
func (*AudioSources) TypeID() string { return IDAudioSources }

// Playing reports whether the source attached to the given object is playing.
func (a *AudioSources) Playing(id int32) bool {
	for _, s := range a.Sources {
		if s.ID == id {
			return s.Playing
		}
	}
	return false
}

// ParseAudioSources decodes an "audi" payload.
func ParseAudioSources(payload []byte) (*AudioSources, error) {
	r, err := newReader(payload, IDAudioSources)
	if err != nil {
		return nil, err
	}
	n := r.count()
	a := &AudioSources{Sources: make([]AudioSource, 0, n)}
	for i := 0; i < n; i++ {
		a.Sources = append(a.Sources, AudioSource{
			ID:      r.i32(),
			Playing: r.bool(),
		})
	}
	return a, r.finish()
}

// Encode serializes the payload in build wire layout.
func (a *AudioSources) Encode() []byte {
	w := newWriter(IDAudioSources)
	w.u32(uint32(len(a.Sources)))
	for _, s := range a.Sources {
		w.i32(s.ID)
		w.bool(s.Playing)
	}
	return w.bytes()
}

// Version identifies the build.
type Version struct {
	EngineVersion string
	BuildVersion  string
	Standalone    bool
}

// TypeID implements Payload.
func (*Version) TypeID() string { return IDVersion }

// ParseVersion decodes a "vers" payload.
func ParseVersion(payload []byte) (*Version, error) {
	r, err := newReader(payload, IDVersion)
	if err != nil {
		return nil, err
	}
	v := &Version{
		EngineVersion: r.str(),
		BuildVersion:  r.str(),
		Standalone:    r.bool(),
	}
	return v, r.finish()
}

// Encode serializes the payload in build wire layout.
func (v *Version) Encode() []byte {
	w := newWriter(IDVersion)
	w.str(v.EngineVersion)
	w.str(v.BuildVersion)
	w.bool(v.Standalone)
	return w.bytes()
}

// LogLevel is the severity of a build log message.
type LogLevel uint8

const (
	// LogInfo is an informational message.
	LogInfo LogLevel = iota
	// LogWarning is a warning.
	LogWarning
	// LogError is an error.
	LogError
)

// String returns the level name.
func (l LogLevel) String() string {
	switch l {
	case LogInfo:
		return "info"
	case LogWarning:
		return "warning"
	case LogError:
		return "error"
	default:
		return "unknown"
	}
}

// LogMessage is a log line forwarded from the build.
type LogMessage struct {
	Level      LogLevel
	Message    string
	ObjectType string
}

// TypeID implements Payload.
func (*LogMessage) TypeID() string { return IDLogMessage }

// ParseLogMessage decodes a "logm" payload.
func ParseLogMessage(payload []byte) (*LogMessage, error) {
	r, err := newReader(payload, IDLogMessage)
	if err != nil {
		return nil, err
	}
	m := &LogMessage{
		Level:      LogLevel(r.u8()),
		Message:    r.str(),
		ObjectType: r.str(),
	}
	return m, r.finish()
}

// Encode serializes the payload in build wire layout.
func (m *LogMessage) Encode() []byte {
	w := newWriter(IDLogMessage)
	w.u8(uint8(m.Level))
	w.str(m.Message)
	w.str(m.ObjectType)
	return w.bytes()
}

// QuitSignal acknowledges a terminate command. OK is false when the build is
// quitting because of an internal error rather than a controller request.
type QuitSignal struct {
	OK bool
}

// TypeID implements Payload.
func (*QuitSignal) TypeID() string { return IDQuitSignal }

// ParseQuitSignal decodes a "quit" payload.
func ParseQuitSignal(payload []byte) (*QuitSignal, error) {
	r, err := newReader(payload, IDQuitSignal)
	if err != nil {
		return nil, err
	}
	q := &QuitSignal{OK: r.bool()}
	return q, r.finish()
}

// Encode serializes the payload in build wire layout.
func (q *QuitSignal) Encode() []byte {
	w := newWriter(IDQuitSignal)
	w.bool(q.OK)
	return w.bytes()
}
