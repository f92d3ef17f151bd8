package main

import (
	"fmt"

	"github.com/rs/zerolog"
)

// zeroLogger adapts zerolog to the SDK's Logger interface. Args are
// alternating key/value pairs.
type zeroLogger struct {
	log zerolog.Logger
}

func (z *zeroLogger) Debug(msg string, args ...interface{}) { z.emit(z.log.Debug(), msg, args) }
func (z *zeroLogger) Info(msg string, args ...interface{})  { z.emit(z.log.Info(), msg, args) }
func (z *zeroLogger) Warn(msg string, args ...interface{})  { z.emit(z.log.Warn(), msg, args) }
func (z *zeroLogger) Error(msg string, args ...interface{}) { z.emit(z.log.Error(), msg, args) }

func (z *zeroLogger) emit(ev *zerolog.Event, msg string, args []interface{}) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
