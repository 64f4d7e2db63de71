package midi

import (
    "sync"

    "github.com/sirupsen/logrus"
    gm "gitlab.com/gomidi/midi/v2"
)

// Decoder は生の MIDI メッセージをイベントに分類する。
// NRPN 用のチャネル別バッファを持つため、1つの Input 専用で使う。
type Decoder struct {
    mu           sync.Mutex
    nrpnEnabled  bool
    octaveOffset int
    buffers      [16]nrpnBuffer
    log          *logrus.Logger
}

// NewDecoder は全チャネルのバッファが空の Decoder を返す。
func NewDecoder(opts ...Option) *Decoder {
    o := buildOptions(opts)
    return &Decoder{
        nrpnEnabled:  o.nrpnEvents,
        octaveOffset: o.octaveOffset,
        log:          o.logger,
    }
}

// NRPNEnabled は NRPN の組み立てが有効かどうか。
func (d *Decoder) NRPNEnabled() bool {
    d.mu.Lock()
    defer d.mu.Unlock()
    return d.nrpnEnabled
}

// SetNRPNEnabled は NRPN の組み立てを切り替える。
// 無効化したときは途中のシーケンスを捨てる（イベントは出さない）。
func (d *Decoder) SetNRPNEnabled(enabled bool) {
    d.mu.Lock()
    defer d.mu.Unlock()
    if !enabled {
        for i := range d.buffers {
            d.buffers[i].reset()
        }
    }
    d.nrpnEnabled = enabled
}

// Decode は1メッセージ分のバイト列を分類する。timestamp は ms。
// CC が NRPN を完成させた場合は controlchange と nrpn の2件を返す。
func (d *Decoder) Decode(data []byte, timestamp float64) []Event {
    if len(data) == 0 {
        return nil
    }
    raw := make([]byte, len(data))
    copy(raw, data)

    if d.log.IsLevelEnabled(logrus.DebugLevel) {
        d.log.WithField("timestamp", timestamp).Debugf("MIDI受信: %s", gm.Message(raw).String())
    }

    if raw[0] >= 0xF0 {
        return []Event{d.decodeSystem(raw, timestamp)}
    }

    d.mu.Lock()
    defer d.mu.Unlock()
    return d.decodeChannel(raw, timestamp)
}

func (d *Decoder) decodeChannel(raw []byte, ts float64) []Event {
    command := raw[0] >> 4
    chIdx := int(raw[0] & 0x0F)
    ev := Event{Channel: chIdx + 1, Timestamp: ts, Data: raw}

    if len(raw) < 1+MessageLength(raw[0]) {
        ev.Kind = UnknownChannelMessage
        return []Event{ev}
    }

    switch command {
    case cmdNoteOff, cmdNoteOn:
        note := NewNote(raw[1], d.octaveOffset)
        ev.Note = &note
        ev.RawVelocity = raw[2]
        ev.Velocity = float64(raw[2]) / 127
        // Velocity 0 の NoteOn は NoteOff 扱い
        if command == cmdNoteOn && raw[2] > 0 {
            ev.Kind = NoteOn
        } else {
            ev.Kind = NoteOff
        }
    case cmdKeyAftertouch:
        note := NewNote(raw[1], d.octaveOffset)
        ev.Kind = KeyAftertouch
        ev.Note = &note
        ev.Value = float64(raw[2]) / 127
    case cmdControlChange:
        name, _ := ControllerName(raw[1])
        ev.Controller = &Controller{Number: raw[1], Name: name}
        ev.Value = float64(raw[2])
        if raw[1] >= channelModeFirst {
            ev.Kind = ChannelMode
            return []Event{ev}
        }
        ev.Kind = ControlChange
        if !d.nrpnEnabled {
            return []Event{ev}
        }
        nrpn := d.buffers[chIdx].feed(raw[1], raw[2])
        if nrpn == nil {
            return []Event{ev}
        }
        pname, _ := ControllerName(ccParamMSB)
        return []Event{ev, {
            Kind:       NRPN,
            Channel:    ev.Channel,
            Timestamp:  ts,
            Data:       raw,
            Controller: &Controller{Number: ccParamMSB, Name: pname},
            Value:      float64(nrpn.Value),
            NRPN:       nrpn,
        }}
    case cmdProgramChange:
        ev.Kind = ProgramChange
        ev.Value = float64(raw[1])
    case cmdChannelAftertouch:
        ev.Kind = ChannelAftertouch
        ev.Value = float64(raw[1]) / 127
    case cmdPitchBend:
        ev.Kind = PitchBend
        ev.Value = pitchBendValue(raw[1], raw[2])
    default:
        ev.Kind = UnknownChannelMessage
    }
    return []Event{ev}
}

func (d *Decoder) decodeSystem(raw []byte, ts float64) Event {
    ev := Event{Timestamp: ts, Data: raw}
    kind, ok := systemKindByStatus[raw[0]]
    if !ok {
        ev.Kind = UnknownSystemMessage
        return ev
    }
    ev.Kind = kind
    if kind == SongSelect && len(raw) > 1 {
        ev.Song = raw[1]
    }
    return ev
}

// pitchBendValue は 14bit 値を [-1, 1) に正規化する。
func pitchBendValue(lsb, msb uint8) float64 {
    return float64(int(msb)<<7+int(lsb)-8192) / 8192
}
