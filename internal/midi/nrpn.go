package midi

import "fmt"

type nrpnStep struct {
    number uint8
    value  uint8
}

// nrpnBuffer は1チャネル分の組み立て途中の NRPN シーケンス。
// 常に正しいシーケンスの先頭部分だけを保持する。
//
//  99(param MSB) 98(param LSB) 96|97(inc/dec) 99=127 98=127           → 5件で完成
//  99(param MSB) 98(param LSB) 6(entry MSB) [38(entry LSB)] 99=127 98=127 → 5/6件で完成
type nrpnBuffer struct {
    steps [6]nrpnStep
    n     int
}

func (b *nrpnBuffer) reset() { b.n = 0 }

func (b *nrpnBuffer) push(s nrpnStep) {
    b.steps[b.n] = s
    b.n++
}

func (b *nrpnBuffer) last() nrpnStep { return b.steps[b.n-1] }

func isNRPNController(number uint8) bool {
    return (number >= ccIncrement && number <= ccParamMSB) || number == ccEntryMSB || number == ccEntryLSB
}

// feed は CC を1件受け取り、シーケンスが完成したら NRPN を返す。
// NRPN に使われない CC 番号はバッファに影響しない。
func (b *nrpnBuffer) feed(number, value uint8) *NRPNData {
    if !isNRPNController(number) {
        return nil
    }
    s := nrpnStep{number: number, value: value}

    // null 以外の param MSB は常に新しいシーケンスの始まり
    if number == ccParamMSB && value != nrpnNullValue {
        b.reset()
        b.push(s)
        return nil
    }

    switch {
    case b.n == 1 && number == ccParamLSB:
        b.push(s)
    case b.n == 2 && (number == ccIncrement || number == ccDecrement || number == ccEntryMSB):
        b.push(s)
    case b.n == 3 && b.steps[2].number == ccEntryMSB && number == ccEntryLSB:
        b.push(s)
    case (b.n == 3 || b.n == 4) && number == ccParamMSB && b.last().number != ccParamMSB:
        b.push(s)
    case (b.n == 4 || b.n == 5) && number == ccParamLSB && value == nrpnNullValue && b.last().number == ccParamMSB:
        b.push(s)
        nrpn := b.build()
        b.reset()
        return nrpn
    default:
        b.reset()
    }
    return nil
}

func (b *nrpnBuffer) build() *NRPNData {
    nrpn := &NRPNData{
        Parameter: uint16(b.steps[0].value)<<7 | uint16(b.steps[1].value),
        Value:     uint16(b.steps[2].value),
    }
    switch b.steps[2].number {
    case ccEntryMSB:
        nrpn.Type = NRPNEntry
        // LSB 省略時は 0 とみなす
        nrpn.Value <<= 7
        if b.steps[3].number == ccEntryLSB {
            nrpn.Value |= uint16(b.steps[3].value)
        }
    case ccIncrement:
        nrpn.Type = NRPNIncrement
    case ccDecrement:
        nrpn.Type = NRPNDecrement
    default:
        panic(fmt.Sprintf("midi: NRPN type unidentifiable (cc %d)", b.steps[2].number))
    }
    return nrpn
}
