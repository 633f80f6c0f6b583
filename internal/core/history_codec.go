package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"prospero/internal/types"
)

// EncodeRevisionMessage renders "<TYPE> <summary>\n\n<JSON snapshot>".
func EncodeRevisionMessage(stateType types.StateType, summary string, snapshot types.HistorySnapshot) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode history snapshot").
			WithCause(err)
	}
	header := string(stateType)
	if line := oneLine(summary); line != "" {
		header += " " + line
	}
	return header + "\n\n" + string(payload), nil
}

// DecodeRevisionMessage is the inverse of EncodeRevisionMessage.
func DecodeRevisionMessage(message string) (types.StateType, string, types.HistorySnapshot, error) {
	header, body, _ := strings.Cut(message, "\n\n")
	header = strings.TrimSpace(header)
	typeToken, summary, _ := strings.Cut(header, " ")
	stateType, ok := types.ParseStateType(typeToken)
	if !ok {
		return "", "", types.HistorySnapshot{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown revision type %q", typeToken))
	}
	var snapshot types.HistorySnapshot
	if trimmed := strings.TrimSpace(body); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &snapshot); err != nil {
			return "", "", types.HistorySnapshot{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid revision payload").
				WithCause(err)
		}
	}
	return stateType, strings.TrimSpace(summary), snapshot, nil
}

func oneLine(value string) string {
	fields := strings.Fields(value)
	return strings.Join(fields, " ")
}
