package midi

import (
    "time"

    "github.com/sirupsen/logrus"
)

type options struct {
    nrpnEvents    bool
    octaveOffset  int
    logger        *logrus.Logger
    watchInterval time.Duration
}

// Option は Input/Decoder の設定。
type Option func(*options)

func defaultOptions() options {
    return options{
        nrpnEvents:    true,
        logger:        logrus.StandardLogger(),
        watchInterval: time.Second,
    }
}

func buildOptions(opts []Option) options {
    o := defaultOptions()
    for _, fn := range opts {
        fn(&o)
    }
    if o.logger == nil {
        o.logger = logrus.StandardLogger()
    }
    return o
}

// WithNRPNEvents は NRPN イベントの組み立てを有効/無効にする（既定: 有効）。
func WithNRPNEvents(enabled bool) Option {
    return func(o *options) { o.nrpnEvents = enabled }
}

// WithOctaveOffset はノート表記のオクターブをずらす。
func WithOctaveOffset(offset int) Option {
    return func(o *options) { o.octaveOffset = offset }
}

// WithLogger はログ出力先を差し替える。
func WithLogger(l *logrus.Logger) Option {
    return func(o *options) { o.logger = l }
}

// WithWatchInterval はデバイス切断監視のポーリング間隔（rtmidi ドライバのみ）。
func WithWatchInterval(d time.Duration) Option {
    return func(o *options) {
        if d > 0 {
            o.watchInterval = d
        }
    }
}
