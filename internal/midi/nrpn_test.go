package midi

import (
    "testing"

    gm "gitlab.com/gomidi/midi/v2"
)

// cc は 1 始まりのチャネルで CC メッセージを作る。
func cc(ch int, num, val uint8) []byte {
    return gm.ControlChange(uint8(ch-1), num, val)
}

// feedAll は全メッセージを流し、得られた nrpn イベントだけを返す。
func feedAll(d *Decoder, msgs ...[]byte) []Event {
    var out []Event
    for _, m := range msgs {
        for _, ev := range d.Decode(m, 0) {
            if ev.Kind == NRPN {
                out = append(out, ev)
            }
        }
    }
    return out
}

func TestNRPNIncrementDecrement(t *testing.T) {
    d := NewDecoder()
    if got := feedAll(d, cc(1, 99, 0), cc(1, 98, 5), cc(1, 96, 3)); len(got) != 0 {
        t.Fatalf("unterminated prefix emitted %d events", len(got))
    }
    got := feedAll(d, cc(1, 99, 127), cc(1, 98, 127))
    if len(got) != 1 {
        t.Fatalf("expected 1 nrpn event, got %d", len(got))
    }
    n := got[0].NRPN
    if n.Type != NRPNIncrement || n.Parameter != 5 || n.Value != 3 || got[0].Channel != 1 {
        t.Fatalf("nrpn=%+v channel=%d", n, got[0].Channel)
    }
    if got := feedAll(d, cc(1, 98, 127), cc(1, 99, 127)); len(got) != 0 {
        t.Fatalf("buffer was not reset after emission")
    }

    got = feedAll(d, cc(4, 99, 1), cc(4, 98, 5), cc(4, 97, 9), cc(4, 99, 127), cc(4, 98, 127))
    if len(got) != 1 || got[0].NRPN.Type != NRPNDecrement || got[0].NRPN.Parameter != 133 || got[0].Channel != 4 {
        t.Fatalf("decrement: %+v", got)
    }
}

func TestNRPNEntry14Bit(t *testing.T) {
    d := NewDecoder()
    seq := [][]byte{cc(1, 99, 1), cc(1, 98, 2), cc(1, 6, 10), cc(1, 38, 20), cc(1, 99, 127), cc(1, 98, 127)}
    for round := 0; round < 2; round++ {
        got := feedAll(d, seq...)
        if len(got) != 1 {
            t.Fatalf("round %d: expected 1 event, got %d", round, len(got))
        }
        n := got[0].NRPN
        if n.Type != NRPNEntry || n.Parameter != 1<<7|2 || n.Value != 10<<7|20 {
            t.Fatalf("round %d: nrpn=%+v", round, n)
        }
    }

    // LSB 省略
    got := feedAll(d, cc(1, 99, 0), cc(1, 98, 0), cc(1, 6, 3), cc(1, 99, 127), cc(1, 98, 127))
    if len(got) != 1 || got[0].NRPN.Value != 3<<7 {
        t.Fatalf("msb-only entry: %+v", got)
    }
}

func TestNRPNChannelsAreIndependent(t *testing.T) {
    d := NewDecoder()
    got := feedAll(d,
        cc(1, 99, 0), cc(2, 99, 0),
        cc(1, 98, 1), cc(2, 98, 2),
        cc(1, 96, 1),
        cc(1, 99, 127), cc(1, 98, 127),
    )
    if len(got) != 1 || got[0].Channel != 1 {
        t.Fatalf("channel 1 sequence: %+v", got)
    }
    got = feedAll(d, cc(2, 97, 4), cc(2, 99, 127), cc(2, 98, 127))
    if len(got) != 1 || got[0].Channel != 2 || got[0].NRPN.Parameter != 2 || got[0].NRPN.Type != NRPNDecrement {
        t.Fatalf("channel 2 sequence: %+v", got)
    }
}

func TestNRPNOutOfOrderResets(t *testing.T) {
    d := NewDecoder()
    // 38 は entry MSB の後にしか来ない
    if got := feedAll(d, cc(1, 99, 0), cc(1, 98, 0), cc(1, 38, 1), cc(1, 99, 127), cc(1, 98, 127)); len(got) != 0 {
        t.Fatalf("broken sequence emitted %+v", got)
    }
    // 98 は 99 の後にしか来ない
    if got := feedAll(d, cc(1, 98, 0), cc(1, 96, 1), cc(1, 99, 127), cc(1, 98, 127)); len(got) != 0 {
        t.Fatalf("sequence without param MSB emitted %+v", got)
    }
    // null LSB は null MSB の後にしか来ない
    if got := feedAll(d, cc(1, 99, 0), cc(1, 98, 0), cc(1, 96, 1), cc(1, 98, 127)); len(got) != 0 {
        t.Fatalf("missing null MSB emitted %+v", got)
    }
    got := feedAll(d, cc(1, 99, 0), cc(1, 98, 7), cc(1, 96, 2), cc(1, 99, 127), cc(1, 98, 127))
    if len(got) != 1 || got[0].NRPN.Parameter != 7 || got[0].NRPN.Value != 2 {
        t.Fatalf("valid sequence after reset: %+v", got)
    }
}

func TestNRPNIgnoresOtherControllers(t *testing.T) {
    d := NewDecoder()
    got := feedAll(d, cc(1, 99, 0), cc(1, 98, 1), cc(1, 7, 100), cc(1, 96, 1), cc(1, 64, 0), cc(1, 99, 127), cc(1, 98, 127))
    if len(got) != 1 || got[0].NRPN.Parameter != 1 {
        t.Fatalf("expected 1 event, got %+v", got)
    }
}

func TestNRPNParamMSBRestartsSequence(t *testing.T) {
    d := NewDecoder()
    got := feedAll(d, cc(1, 99, 0), cc(1, 98, 0), cc(1, 99, 5), cc(1, 98, 6), cc(1, 96, 1), cc(1, 99, 127), cc(1, 98, 127))
    if len(got) != 1 || got[0].NRPN.Parameter != 5<<7|6 {
        t.Fatalf("restart: %+v", got)
    }
    if got := feedAll(d, cc(1, 99, 127), cc(1, 98, 127)); len(got) != 0 {
        t.Fatalf("null pair alone emitted %+v", got)
    }
}

func TestNRPNStillEmitsControlChange(t *testing.T) {
    d := NewDecoder()
    seq := [][]byte{cc(1, 99, 0), cc(1, 98, 0), cc(1, 96, 1), cc(1, 99, 127), cc(1, 98, 127)}
    var kinds []EventKind
    for _, m := range seq {
        for _, ev := range d.Decode(m, 0) {
            kinds = append(kinds, ev.Kind)
        }
    }
    want := []EventKind{ControlChange, ControlChange, ControlChange, ControlChange, ControlChange, NRPN}
    if len(kinds) != len(want) {
        t.Fatalf("kinds=%v; want %v", kinds, want)
    }
    for i := range want {
        if kinds[i] != want[i] {
            t.Fatalf("kinds=%v; want %v", kinds, want)
        }
    }
}

func TestNRPNDisabled(t *testing.T) {
    d := NewDecoder(WithNRPNEvents(false))
    if got := feedAll(d, cc(1, 99, 0), cc(1, 98, 0), cc(1, 96, 1), cc(1, 99, 127), cc(1, 98, 127)); len(got) != 0 {
        t.Fatalf("disabled decoder emitted %+v", got)
    }

    d = NewDecoder()
    feedAll(d, cc(1, 99, 0), cc(1, 98, 0), cc(1, 96, 1))
    d.SetNRPNEnabled(false)
    if got := feedAll(d, cc(1, 99, 127)); len(got) != 0 {
        t.Fatalf("emitted while disabled")
    }
    d.SetNRPNEnabled(true)
    if got := feedAll(d, cc(1, 98, 127)); len(got) != 0 {
        t.Fatalf("abandoned sequence was resumed: %+v", got)
    }
    if !d.NRPNEnabled() {
        t.Fatalf("NRPNEnabled()=false after re-enable")
    }
}
