package midi

import (
    "math"
    "testing"

    gm "gitlab.com/gomidi/midi/v2"
)

func decodeOne(t *testing.T, d *Decoder, data []byte) Event {
    t.Helper()
    evs := d.Decode(data, 0)
    if len(evs) != 1 {
        t.Fatalf("Decode(% X) returned %d events, want 1", data, len(evs))
    }
    return evs[0]
}

func TestDecodeNoteOnZeroVelocityIsNoteOff(t *testing.T) {
    d := NewDecoder()
    for n := 0; n <= 127; n++ {
        ev := decodeOne(t, d, []byte{0x90, byte(n), 0})
        if ev.Kind != NoteOff {
            t.Fatalf("note %d velocity 0: kind=%s; want noteoff", n, ev.Kind)
        }
        if ev.Note == nil || ev.Note.Number != uint8(n) {
            t.Fatalf("note %d: note=%+v", n, ev.Note)
        }
    }
}

func TestDecodeNotes(t *testing.T) {
    d := NewDecoder()

    ev := decodeOne(t, d, gm.NoteOn(2, 60, 127))
    if ev.Kind != NoteOn || ev.Channel != 3 {
        t.Fatalf("kind=%s channel=%d", ev.Kind, ev.Channel)
    }
    if ev.Note.Name != "C" || ev.Note.Octave != 4 {
        t.Fatalf("note=%+v; want C4", ev.Note)
    }
    if ev.Velocity != 1 || ev.RawVelocity != 127 {
        t.Fatalf("velocity=%v raw=%d", ev.Velocity, ev.RawVelocity)
    }

    ev = decodeOne(t, d, gm.NoteOff(0, 61))
    if ev.Kind != NoteOff || ev.Note.Name != "C#" {
        t.Fatalf("kind=%s note=%+v", ev.Kind, ev.Note)
    }

    shifted := NewDecoder(WithOctaveOffset(1))
    ev = decodeOne(t, shifted, gm.NoteOn(0, 69, 64))
    if ev.Note.Name != "A" || ev.Note.Octave != 5 {
        t.Fatalf("offset note=%+v; want A5", ev.Note)
    }
    if math.Abs(ev.Velocity-64.0/127) > 1e-9 {
        t.Fatalf("velocity=%v", ev.Velocity)
    }
}

func TestDecodePitchBend(t *testing.T) {
    d := NewDecoder()
    cases := []struct {
        data []byte
        want float64
    }{
        {[]byte{0xE0, 0, 0}, -1},
        {[]byte{0xE0, 127, 127}, 8191.0 / 8192},
        {[]byte{0xE0, 0, 64}, 0},
        {gm.Pitchbend(0, 0), 0},
    }
    for _, c := range cases {
        ev := decodeOne(t, d, c.data)
        if ev.Kind != PitchBend {
            t.Fatalf("% X: kind=%s", c.data, ev.Kind)
        }
        if ev.Value != c.want {
            t.Fatalf("% X: value=%v; want %v", c.data, ev.Value, c.want)
        }
        if ev.Value < -1 || ev.Value >= 1 {
            t.Fatalf("% X: value %v out of [-1,1)", c.data, ev.Value)
        }
    }
}

func TestDecodeControllers(t *testing.T) {
    d := NewDecoder()

    ev := decodeOne(t, d, gm.ControlChange(2, 7, 100))
    if ev.Kind != ControlChange || ev.Channel != 3 {
        t.Fatalf("kind=%s channel=%d", ev.Kind, ev.Channel)
    }
    if ev.Controller.Number != 7 || ev.Controller.Name != "volumecoarse" || ev.Value != 100 {
        t.Fatalf("controller=%+v value=%v", ev.Controller, ev.Value)
    }

    ev = decodeOne(t, d, []byte{0xB0, 123, 0})
    if ev.Kind != ChannelMode || ev.Controller.Name != "allnotesoff" {
        t.Fatalf("kind=%s controller=%+v", ev.Kind, ev.Controller)
    }

    ev = decodeOne(t, d, []byte{0xB0, 119, 1})
    if ev.Kind != ControlChange {
        t.Fatalf("cc 119 kind=%s; want controlchange", ev.Kind)
    }

    // 表に無い番号は空文字
    ev = decodeOne(t, d, []byte{0xB0, 3, 5})
    if ev.Controller.Name != "" {
        t.Fatalf("unmapped controller name=%q", ev.Controller.Name)
    }
}

func TestControllerNameLookup(t *testing.T) {
    if name, ok := ControllerName(64); !ok || name != "holdpedal" {
        t.Fatalf("ControllerName(64)=%q,%v", name, ok)
    }
    if name, ok := ControllerName(127); !ok || name != "polymodeon" {
        t.Fatalf("ControllerName(127)=%q,%v", name, ok)
    }
    if name, ok := ControllerName(9); ok || name != "" {
        t.Fatalf("ControllerName(9)=%q,%v; want sentinel", name, ok)
    }
    if n, ok := ControllerNumber("allsoundoff"); !ok || n != 120 {
        t.Fatalf("ControllerNumber(allsoundoff)=%d,%v", n, ok)
    }
}

func TestDecodeOtherChannelMessages(t *testing.T) {
    d := NewDecoder()

    ev := decodeOne(t, d, gm.ProgramChange(15, 5))
    if ev.Kind != ProgramChange || ev.Channel != 16 || ev.Value != 5 {
        t.Fatalf("program change: %+v", ev)
    }
    ev = decodeOne(t, d, gm.AfterTouch(0, 127))
    if ev.Kind != ChannelAftertouch || ev.Value != 1 {
        t.Fatalf("channel aftertouch: kind=%s value=%v", ev.Kind, ev.Value)
    }
    ev = decodeOne(t, d, gm.PolyAfterTouch(0, 60, 127))
    if ev.Kind != KeyAftertouch || ev.Value != 1 || ev.Note.Number != 60 {
        t.Fatalf("key aftertouch: kind=%s value=%v note=%+v", ev.Kind, ev.Value, ev.Note)
    }
    // データバイト不足
    ev = decodeOne(t, d, []byte{0x90, 60})
    if ev.Kind != UnknownChannelMessage || ev.Channel != 1 {
        t.Fatalf("truncated: kind=%s channel=%d", ev.Kind, ev.Channel)
    }
}

func TestDecodeSystemMessages(t *testing.T) {
    d := NewDecoder()
    cases := []struct {
        data []byte
        want EventKind
    }{
        {gm.SysEx([]byte{0x7E, 0x01}), SysEx},
        {[]byte{0xF1, 0x10}, TimeCode},
        {[]byte{0xF2, 0x00, 0x01}, SongPosition},
        {[]byte{0xF3, 0x05}, SongSelect},
        {[]byte{0xF6}, TuningRequest},
        {[]byte{0xF8}, Clock},
        {[]byte{0xFA}, Start},
        {[]byte{0xFB}, Continue},
        {[]byte{0xFC}, Stop},
        {[]byte{0xFE}, ActiveSensing},
        {[]byte{0xFF}, Reset},
        {[]byte{0xF4}, UnknownSystemMessage},
        {[]byte{0xFD}, UnknownSystemMessage},
    }
    for _, c := range cases {
        ev := decodeOne(t, d, c.data)
        if ev.Kind != c.want {
            t.Fatalf("% X: kind=%s; want %s", c.data, ev.Kind, c.want)
        }
        if ev.Channel != 0 {
            t.Fatalf("% X: system event has channel %d", c.data, ev.Channel)
        }
    }
    if ev := decodeOne(t, d, []byte{0xF3, 0x05}); ev.Song != 5 {
        t.Fatalf("songselect song=%d; want 5", ev.Song)
    }
}

func TestDecodeCopiesData(t *testing.T) {
    d := NewDecoder()
    data := []byte{0x90, 60, 100}
    ev := decodeOne(t, d, data)
    data[1] = 0
    if ev.Data[1] != 60 {
        t.Fatalf("event data aliases the host buffer")
    }
    if d.Decode(nil, 0) != nil {
        t.Fatalf("empty message should produce no events")
    }
}
