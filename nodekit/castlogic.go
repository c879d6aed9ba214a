package nodekit

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/node"
	"github.com/evalgo/flowengine/pin"
	"github.com/evalgo/flowengine/registry"
)

// CastStringLogic is a pure node that stringifies whatever value its
// generic input carries, the glue a linear chain needs to feed a numeric
// producer into a string-only consumer like PrintLogic.
type CastStringLogic struct{}

func (l *CastStringLogic) Template() *node.Node {
	n := node.New("", "cast_string")
	n.AddPin(&pin.Pin{ID: "value", Name: "value", Direction: pin.DirectionInput, Kind: pin.KindGeneric})
	n.AddPin(&pin.Pin{ID: "s", Name: "s", Direction: pin.DirectionOutput, Kind: pin.KindString})
	return n
}

func (l *CastStringLogic) Run(ctx registry.Runner) error {
	raw, err := ctx.EvaluatePinRaw("value")
	if err != nil {
		return fmt.Errorf("nodekit: cast_string: pin value: %w", err)
	}

	var v any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("nodekit: cast_string: decode value: %w", err)
		}
	}

	out, err := json.Marshal(stringify(v))
	if err != nil {
		return fmt.Errorf("nodekit: cast_string: encode s: %w", err)
	}
	return ctx.SetPinValueRaw("s", out)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func (l *CastStringLogic) Reshape(*node.Node, *board.Board) error  { return nil }
func (l *CastStringLogic) OnDelete(*node.Node, *board.Board) error { return nil }
