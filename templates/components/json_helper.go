// Package components holds helpers for values embedded into page markup
package components

import (
	"encoding/json"
	"html/template"

	"aftercollage_app_go/logger"

	"go.uber.org/zap"
)

// JSON marshals v for a <script type="application/json"> block, returning "{}" on error.
// encoding/json escapes <, > and & so the result cannot close the script element.
func JSON(v interface{}) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		logger.L().Warn("failed to marshal template JSON", zap.Error(err))
		return "{}"
	}
	return template.JS(b)
}
