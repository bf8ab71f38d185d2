package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tatianab/impact-sandbox/internal/models"
)

type commandKind int

const (
	cmdSay commandKind = iota
	cmdHelp
	cmdChat
	cmdTalk
	cmdDecide
	cmdAdd
	cmdDrop
	cmdSubmit
	cmdObjective
	cmdGuess
	cmdRestart
	cmdScenarios
	cmdQuit
)

// command is one parsed line of player input. Numeric arguments are the
// 1-based positions shown in the side panel.
type command struct {
	kind  commandKind
	text  string
	index []int
	guess models.Impact
}

var commandNames = map[string]commandKind{
	"/help":      cmdHelp,
	"/chat":      cmdChat,
	"/talk":      cmdTalk,
	"/decide":    cmdDecide,
	"/add":       cmdAdd,
	"/drop":      cmdDrop,
	"/submit":    cmdSubmit,
	"/objective": cmdObjective,
	"/guess":     cmdGuess,
	"/restart":   cmdRestart,
	"/scenarios": cmdScenarios,
	"/quit":      cmdQuit,
}

// argCounts lists how many numeric arguments each command takes.
var argCounts = map[commandKind]int{
	cmdTalk: 1,
	cmdAdd:  2,
	cmdDrop: 2,
}

const helpText = `Commands:
  /chat              talk to stakeholders
  /talk N            pick stakeholder N, then type to talk
  /decide            open the decision board
  /add N I           add intervention I in neighborhood N to the draft
  /drop N I          remove it again
  /submit            submit the draft for assessment
  /objective         start the follow-up round after feedback
  /guess E C S       estimate env, econ and social impact (0-10)
  /restart           replay this scenario from the briefing
  /scenarios         back to the scenario list
  /quit`

func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdSay, text: line}, nil
	}

	fields := strings.Fields(line)
	kind, ok := commandNames[strings.ToLower(fields[0])]
	if !ok {
		return command{}, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	args := fields[1:]
	c := command{kind: kind}

	if kind == cmdGuess {
		if len(args) != 3 {
			return command{}, fmt.Errorf("usage: /guess ENV ECON SOCIAL")
		}
		var v [3]float64
		for i, a := range args {
			f, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return command{}, fmt.Errorf("%q is not a number", a)
			}
			v[i] = f
		}
		c.guess = models.Impact{Env: v[0], Econ: v[1], Social: v[2]}
		return c, nil
	}

	want := argCounts[kind]
	if len(args) != want {
		return command{}, fmt.Errorf("%s takes %d argument(s), got %d", fields[0], want, len(args))
	}
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 {
			return command{}, fmt.Errorf("%q is not a list number", a)
		}
		c.index = append(c.index, n)
	}
	return c, nil
}

// pick returns the 1-based n-th entry of names.
func pick(names []string, n int) (string, error) {
	if n < 1 || n > len(names) {
		return "", fmt.Errorf("no entry %d (1-%d)", n, len(names))
	}
	return names[n-1], nil
}
