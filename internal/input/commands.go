package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Kind identifies a typed command
type Kind int

const (
	CmdMute        Kind = iota // m: toggle microphone mute
	CmdScreen                  // s: toggle screen sharing
	CmdText                    // t <text>: send a chat message
	CmdFile                    // f <path> [text]: send a file with an optional message
	CmdConnect                 // c: connect or disconnect
	CmdHistory                 // h: print the conversation
	CmdClear                   // x: clear the conversation
	CmdQuit                    // q: quit
	CmdHelp                    // ?: list commands
)

// Command is one parsed input line
type Command struct {
	Kind Kind
	Text string
	Path string
}

// Help describes the available commands
const Help = `Comandos:
  c              conectar / desconectar
  m              silenciar / reativar microfone
  s              iniciar / parar compartilhamento de tela
  t <texto>      enviar mensagem de texto
  f <arquivo> [texto]  enviar arquivo
  h              mostrar histórico
  x              limpar histórico
  q              sair`

// ParseCommand parses a line. Lines that are not a known command are sent as
// chat text.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("empty command")
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.TrimPrefix(strings.ToLower(name), "/") {
	case "m", "mute":
		return Command{Kind: CmdMute}, nil
	case "s", "screen":
		return Command{Kind: CmdScreen}, nil
	case "c", "connect":
		return Command{Kind: CmdConnect}, nil
	case "h", "history":
		return Command{Kind: CmdHistory}, nil
	case "x", "clear":
		return Command{Kind: CmdClear}, nil
	case "q", "quit", "exit":
		return Command{Kind: CmdQuit}, nil
	case "?", "help":
		return Command{Kind: CmdHelp}, nil
	case "t", "text":
		if rest == "" {
			return Command{}, fmt.Errorf("usage: t <texto>")
		}
		return Command{Kind: CmdText, Text: rest}, nil
	case "f", "file":
		if rest == "" {
			return Command{}, fmt.Errorf("usage: f <arquivo> [texto]")
		}
		path, text, _ := strings.Cut(rest, " ")
		return Command{Kind: CmdFile, Path: path, Text: strings.TrimSpace(text)}, nil
	default:
		return Command{Kind: CmdText, Text: line}, nil
	}
}

// ReadCommands parses lines from r until EOF or ctx ends. Parse errors are
// delivered to onError and skipped.
func ReadCommands(ctx context.Context, r io.Reader, onError func(error)) <-chan Command {
	out := make(chan Command)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == "" {
				continue
			}
			cmd, err := ParseCommand(scanner.Text())
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
