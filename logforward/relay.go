/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logforward

import (
	"github.com/crewjam/rfc5424"
	"github.com/sentryd/privsep/internal/logging"
	"github.com/sentryd/privsep/wire"
)

// NewOOBHandler builds a channel.OOBHandler that reconstructs a log record
// from a LOG wire message and re-injects it into dst, where dst's own level
// threshold decides whether it is actually rendered. Anything that is not a
// LOG message is dropped -- today logs are the only OOB traffic.
func NewOOBHandler(dst *logging.Logger) func(wire.Message) {
	return func(msg wire.Message) {
		if msg.Kind != wire.KindLog || msg.Log == nil {
			return
		}
		fields := msg.Log.Fields

		lvl := logging.INFO
		if raw, ok := fields["level"].(string); ok {
			if parsed, err := logging.LevelFromString(raw); err == nil {
				lvl = parsed
			}
		}
		text, _ := fields["msg"].(string)

		sds := make([]rfc5424.SDParam, 0, len(fields))
		for k, v := range fields {
			if k == "level" || k == "msg" {
				continue
			}
			if s, ok := v.(string); ok {
				sds = append(sds, logging.KV(k, s))
			}
		}

		switch lvl {
		case logging.DEBUG:
			dst.Debug(text, sds...)
		case logging.WARN:
			dst.Warn(text, sds...)
		case logging.ERROR:
			dst.Error(text, sds...)
		case logging.CRITICAL:
			dst.Critical(text, sds...)
		default:
			dst.Info(text, sds...)
		}
	}
}
