package midi

// チャネルメッセージのコマンド (ステータス上位4bit)
const (
    cmdNoteOff           = 0x8
    cmdNoteOn            = 0x9
    cmdKeyAftertouch     = 0xA
    cmdControlChange     = 0xB
    cmdProgramChange     = 0xC
    cmdChannelAftertouch = 0xD
    cmdPitchBend         = 0xE
)

// システムメッセージのステータスバイト
var systemKindByStatus = map[byte]EventKind{
    0xF0: SysEx,
    0xF1: TimeCode,
    0xF2: SongPosition,
    0xF3: SongSelect,
    0xF6: TuningRequest,
    0xF8: Clock,
    0xFA: Start,
    0xFB: Continue,
    0xFC: Stop,
    0xFE: ActiveSensing,
    0xFF: Reset,
}

// NRPN シーケンスを構成する CC 番号
const (
    ccEntryMSB    = 6
    ccEntryLSB    = 38
    ccIncrement   = 96
    ccDecrement   = 97
    ccParamLSB    = 98
    ccParamMSB    = 99
    nrpnNullValue = 127
)

// 120-127 は Channel Mode Message
const channelModeFirst = 120

var controlChangeNames = map[string]uint8{
    "bankselectcoarse":             0,
    "modulationwheelcoarse":        1,
    "breathcontrollercoarse":       2,
    "footcontrollercoarse":         4,
    "portamentotimecoarse":         5,
    "dataentrycoarse":              6,
    "volumecoarse":                 7,
    "balancecoarse":                8,
    "pancoarse":                    10,
    "expressioncoarse":             11,
    "effectcontrol1coarse":         12,
    "effectcontrol2coarse":         13,
    "generalpurposeslider1":        16,
    "generalpurposeslider2":        17,
    "generalpurposeslider3":        18,
    "generalpurposeslider4":        19,
    "bankselectfine":               32,
    "modulationwheelfine":          33,
    "breathcontrollerfine":         34,
    "footcontrollerfine":           36,
    "portamentotimefine":           37,
    "dataentryfine":                38,
    "volumefine":                   39,
    "balancefine":                  40,
    "panfine":                      42,
    "expressionfine":               43,
    "effectcontrol1fine":           44,
    "effectcontrol2fine":           45,
    "holdpedal":                    64,
    "portamento":                   65,
    "sustenutopedal":               66,
    "softpedal":                    67,
    "legatopedal":                  68,
    "hold2pedal":                   69,
    "soundvariation":               70,
    "resonance":                    71,
    "soundreleasetime":             72,
    "soundattacktime":              73,
    "brightness":                   74,
    "soundcontrol6":                75,
    "soundcontrol7":                76,
    "soundcontrol8":                77,
    "soundcontrol9":                78,
    "soundcontrol10":               79,
    "generalpurposebutton1":        80,
    "generalpurposebutton2":        81,
    "generalpurposebutton3":        82,
    "generalpurposebutton4":        83,
    "reverblevel":                  91,
    "tremololevel":                 92,
    "choruslevel":                  93,
    "celestelevel":                 94,
    "phaserlevel":                  95,
    "databuttonincrement":          96,
    "databuttondecrement":          97,
    "nonregisteredparameterfine":   98,
    "nonregisteredparametercoarse": 99,
    "registeredparameterfine":      100,
    "registeredparametercoarse":    101,
}

var channelModeNames = map[string]uint8{
    "allsoundoff":         120,
    "resetallcontrollers": 121,
    "localcontrol":        122,
    "allnotesoff":         123,
    "omnimodeoff":         124,
    "omnimodeon":          125,
    "monomodeon":          126,
    "polymodeon":          127,
}

// ControllerName は CC 番号から名前を逆引きする。
// 表に無い番号は失敗にせず ("", false) を返す。
func ControllerName(number uint8) (string, bool) {
    table := controlChangeNames
    if number >= channelModeFirst {
        table = channelModeNames
    }
    for name, n := range table {
        if n == number {
            return name, true
        }
    }
    return "", false
}

// ControllerNumber は名前から CC 番号を引く。
func ControllerNumber(name string) (uint8, bool) {
    if n, ok := controlChangeNames[name]; ok {
        return n, true
    }
    n, ok := channelModeNames[name]
    return n, ok
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NewNote はノート番号から名前とオクターブを求める。60 は C4 (offset 0)。
func NewNote(number uint8, octaveOffset int) Note {
    return Note{
        Number: number,
        Name:   noteNames[number%12],
        Octave: int(number)/12 - 1 + octaveOffset,
    }
}

// MessageLength はステータスバイトに続くデータバイト数を返す。
// SysEx や未定義ステータスは 0。
func MessageLength(status byte) int {
    if status < 0xF0 {
        switch status >> 4 {
        case cmdProgramChange, cmdChannelAftertouch:
            return 1
        default:
            return 2
        }
    }
    switch status {
    case 0xF1, 0xF3:
        return 1
    case 0xF2:
        return 2
    default:
        return 0
    }
}
