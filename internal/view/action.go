package view

import (
	"errors"
	"strings"
)

// Kind - тип действия, зашитого в callback data кнопки
type Kind string

const (
	KindCheckIn      Kind = "in"
	KindCheckOut     Kind = "out"
	KindManual       Kind = "manual"
	KindManualTime   Kind = "mtime"
	KindManualDate   Kind = "mdate"
	KindHistory      Kind = "hist"
	KindHistoryClose Kind = "hclose"
	KindLogout       Kind = "logout"
	KindRefresh      Kind = "refresh"
	KindExport       Kind = "export"
	KindEdit         Kind = "edit"
	KindDelete       Kind = "del"
	KindEditField    Kind = "efield"
	KindEditSave     Kind = "esave"
	KindEditCancel   Kind = "ecancel"
	KindConfirm      Kind = "cf"
)

var knownKinds = map[Kind]bool{
	KindCheckIn: true, KindCheckOut: true, KindManual: true,
	KindManualTime: true, KindManualDate: true, KindHistory: true,
	KindHistoryClose: true, KindLogout: true, KindRefresh: true,
	KindExport: true, KindEdit: true, KindDelete: true,
	KindEditField: true, KindEditSave: true, KindEditCancel: true,
	KindConfirm: true,
}

var ErrUnknownAction = errors.New("неизвестное действие")

// Action - нажатие кнопки. Arg - дата записи, поле или токен подтверждения.
type Action struct {
	Kind Kind
	Arg  string
}

// Encode упаковывает действие в callback data ("kind" или "kind:arg").
func (a Action) Encode() string {
	if a.Arg == "" {
		return string(a.Kind)
	}
	return string(a.Kind) + ":" + a.Arg
}

// ParseAction разбирает callback data. Аргумент - все после первого ':'.
func ParseAction(data string) (Action, error) {
	kind, arg, _ := strings.Cut(data, ":")
	if !knownKinds[Kind(kind)] {
		return Action{}, ErrUnknownAction
	}
	return Action{Kind: Kind(kind), Arg: arg}, nil
}
