package midi

import (
    "errors"

    "github.com/samber/lo"
)

// EventKind は Input が発行するイベント種別。値はそのままワイヤ上の名前として使う。
type EventKind string

const (
    // ポートのライフサイクル
    Opened       EventKind = "opened"
    Closed       EventKind = "closed"
    Disconnected EventKind = "disconnected"

    // チャネルボイス
    NoteOff               EventKind = "noteoff"
    NoteOn                EventKind = "noteon"
    KeyAftertouch         EventKind = "keyaftertouch"
    ControlChange         EventKind = "controlchange"
    ChannelMode           EventKind = "channelmode"
    ProgramChange         EventKind = "programchange"
    ChannelAftertouch     EventKind = "channelaftertouch"
    PitchBend             EventKind = "pitchbend"
    NRPN                  EventKind = "nrpn"
    UnknownChannelMessage EventKind = "unknownchannelmessage"

    // システム
    SysEx                EventKind = "sysex"
    TimeCode             EventKind = "timecode"
    SongPosition         EventKind = "songposition"
    SongSelect           EventKind = "songselect"
    TuningRequest        EventKind = "tuningrequest"
    Clock                EventKind = "clock"
    Start                EventKind = "start"
    Continue             EventKind = "continue"
    Stop                 EventKind = "stop"
    ActiveSensing        EventKind = "activesensing"
    Reset                EventKind = "reset"
    UnknownSystemMessage EventKind = "unknownsystemmessage"
)

var portKinds = []EventKind{Opened, Closed, Disconnected}

var channelKinds = []EventKind{
    NoteOff, NoteOn, KeyAftertouch, ControlChange, ChannelMode,
    ProgramChange, ChannelAftertouch, PitchBend, NRPN, UnknownChannelMessage,
}

var systemKinds = []EventKind{
    SysEx, TimeCode, SongPosition, SongSelect, TuningRequest, Clock,
    Start, Continue, Stop, ActiveSensing, Reset, UnknownSystemMessage,
}

// AllKinds は全イベント種別（ポート → チャネル → システムの順）。
func AllKinds() []EventKind {
    out := make([]EventKind, 0, len(portKinds)+len(channelKinds)+len(systemKinds))
    out = append(out, portKinds...)
    out = append(out, channelKinds...)
    return append(out, systemKinds...)
}

// ChannelScoped はチャネル番号を持つイベント種別なら true。
func (k EventKind) ChannelScoped() bool {
    return lo.Contains(channelKinds, k)
}

// Valid は既知のイベント種別かどうか。
func (k EventKind) Valid() bool {
    return k.ChannelScoped() || lo.Contains(portKinds, k) || lo.Contains(systemKinds, k)
}

// NRPNType は NRPN のデータ指定方法。
type NRPNType string

const (
    NRPNEntry     NRPNType = "entry"
    NRPNIncrement NRPNType = "increment"
    NRPNDecrement NRPNType = "decrement"
)

// Note はノート番号とその表記。
type Note struct {
    Number uint8
    Name   string // C, C#, ... B
    Octave int
}

// Controller は CC 番号と名前。名前が表に無い場合は空文字。
type Controller struct {
    Number uint8
    Name   string
}

// NRPNData は NRPN シーケンスから組み立てた値。
type NRPNData struct {
    Parameter uint16 // 14bit
    Type      NRPNType
    Value     uint16 // increment/decrement は 7bit、entry は 14bit
}

// Event は Input から配信される正規化済みイベント。
// Kind によって使われるフィールドが異なる。
type Event struct {
    Kind      EventKind
    Target    *Input    // opened/closed/MIDI イベントでは生きた Input
    Snapshot  *PortInfo // disconnected のみ。切断済みデバイスの凍結情報
    Channel   int       // 1-16。システム/ポートイベントでは 0
    Timestamp float64   // ms
    Data      []byte

    Note        *Note
    Velocity    float64 // 0-1
    RawVelocity uint8
    Controller  *Controller
    Value       float64
    NRPN        *NRPNData
    Song        uint8 // songselect のみ
}

// Connection はホストが報告するポートの接続状態。
type Connection string

const (
    ConnectionOpen    Connection = "open"
    ConnectionClosed  Connection = "closed"
    ConnectionPending Connection = "pending"
)

// State はデバイスの物理的な接続状態。
type State string

const (
    StateConnected    State = "connected"
    StateDisconnected State = "disconnected"
)

// StateChange はホストの状態変化通知 (connection, state) の組。
type StateChange struct {
    Connection Connection
    State      State
}

// PortInfo はポートの識別情報のスナップショット。
type PortInfo struct {
    ID           string
    Manufacturer string
    Name         string
    State        State
    Type         string
    Connection   Connection
}

// PortTypeInput は Input の Type() が返す値。
const PortTypeInput = "input"

var (
    ErrDestroyed        = errors.New("input is destroyed")
    ErrUnknownEventKind = errors.New("unknown event kind")
    ErrInvalidChannel   = errors.New("midi channel must be 1-16")
    ErrPortNotFound     = errors.New("midi input port not found")
    ErrMalformedPacket  = errors.New("malformed BLE-MIDI packet")
)
