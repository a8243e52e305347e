package term

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"golang.org/x/xerrors"
)

// Terminal запрашивает код входа и пароль 2FA у пользователя в терминале.
// Реализует auth.UserAuthenticator; регистрация новых аккаунтов не поддерживается.
type Terminal struct {
	phone        string
	in           *bufio.Reader
	out          io.Writer
	readPassword func() ([]byte, error)
}

var _ auth.UserAuthenticator = (*Terminal)(nil)

// NewTerminal создает Terminal, работающий со stdin и stderr.
// Подсказки пишутся в stderr, чтобы не смешиваться с выводом команды.
func NewTerminal(phone string) *Terminal {
	return newTerminal(phone, os.Stdin, os.Stderr, termReadPassword)
}

func newTerminal(phone string, in io.Reader, out io.Writer, readPassword func() ([]byte, error)) *Terminal {
	return &Terminal{
		phone:        phone,
		in:           bufio.NewReader(in),
		out:          out,
		readPassword: readPassword,
	}
}

// Phone возвращает номер телефона из конфигурации.
func (t *Terminal) Phone(_ context.Context) (string, error) {
	if t.phone == "" {
		return "", xerrors.New("phone number is not configured")
	}
	return t.phone, nil
}

// Password запрашивает пароль 2FA без эха.
func (t *Terminal) Password(_ context.Context) (string, error) {
	fmt.Fprint(t.out, "Enter 2FA password: ")
	pwd, err := t.readPassword()
	fmt.Fprintln(t.out)
	if err != nil {
		return "", xerrors.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(pwd)), nil
}

// AcceptTermsOfService принимает Условия обслуживания.
func (t *Terminal) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	fmt.Fprintf(t.out, "Accepting Terms of Service: %s\n", tos.Text)
	return nil
}

// Code запрашивает код подтверждения, отправленный Telegram.
func (t *Terminal) Code(_ context.Context, sent *tg.AuthSentCode) (string, error) {
	prompt := "Enter code: "
	if sent != nil {
		if _, ok := sent.Type.(*tg.AuthSentCodeTypeApp); ok {
			prompt = "Enter code sent to your Telegram app: "
		}
	}
	fmt.Fprint(t.out, prompt)
	code, err := t.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || code == "") {
		return "", xerrors.Errorf("failed to read code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", xerrors.New("empty code")
	}
	return code, nil
}

// SignUp не реализован: регистрация новых пользователей не поддерживается.
func (t *Terminal) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, xerrors.New("signup not implemented")
}
