// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/carvia/carvia-go/internal/catalog"
	"github.com/carvia/carvia-go/internal/platform/apperr"
	"github.com/carvia/carvia-go/internal/platform/eventbus"
	"github.com/carvia/carvia-go/pkg/pagination"
	"github.com/carvia/carvia-go/pkg/pointer"
)

const usage = `carvia — car marketplace client

Usage:
  carvia login <username-or-email> <password>
  carvia logout
  carvia whoami
  carvia search [make] [model]
  carvia favourites [add <car-id> | remove <car-id>]
  carvia friends [send <user-id> | accept <request-id> | reject <request-id> |
                  cancel <request-id> | remove <user-id> | requests]
  carvia chat [history <user-id> | send <user-id> <message> | read <user-id> <message-id>]
  carvia impersonate <user-id> | impersonate stop
  carvia watch
`

// run dispatches one subcommand. Every branch returns the failure for main
// to render; nothing here exits the process directly.
func (application *app) run(args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	ctx := context.Background()

	switch args[0] {
	case "login":
		return application.cmdLogin(ctx, args[1:])
	case "logout":
		application.account.Logout(ctx)
		fmt.Println("signed out")
		return nil
	case "whoami":
		return application.cmdWhoami()
	case "search":
		return application.cmdSearch(ctx, args[1:])
	case "favourites":
		return application.cmdFavourites(ctx, args[1:])
	case "friends":
		return application.cmdFriends(ctx, args[1:])
	case "chat":
		return application.cmdChat(ctx, args[1:])
	case "impersonate":
		return application.cmdImpersonate(ctx, args[1:])
	case "watch":
		return application.cmdWatch(ctx)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (application *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: carvia login <username-or-email> <password>")
	}

	user, err := application.account.Login(ctx, args[0], args[1])
	if err != nil {
		return errors.New(apperr.Message(err))
	}

	fmt.Printf("signed in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func (application *app) cmdWhoami() error {
	user := application.sessions.CurrentUser()
	if user == nil || !application.sessions.IsValid() {
		fmt.Println("not signed in")
		return nil
	}

	fmt.Printf("%s <%s> role=%s", user.Username, user.Email, user.Role)
	if application.sessions.IsImpersonating() {
		fmt.Print("  [impersonating]")
	}
	fmt.Println()
	return nil
}

func (application *app) cmdSearch(ctx context.Context, args []string) error {
	filter := catalog.SearchFilter{Params: pagination.Params{Page: 1}}
	if len(args) > 0 {
		filter.Make = args[0]
	}
	if len(args) > 1 {
		filter.Model = args[1]
	}

	meta, err := application.catalog.Search(ctx, filter)
	if err != nil {
		return errors.New(apperr.Message(err))
	}

	for _, car := range application.catalog.Listings.Snapshot().Items {
		fmt.Printf("%-36s  %4d %s %s  %s km  %s\n",
			car.ID, car.Year, car.Make, car.Model,
			formatInt(car.Mileage), formatPrice(car.Price))
	}
	fmt.Printf("page %d of %d (%d total)\n", meta.Page, meta.TotalPages, meta.Total)
	return nil
}

func (application *app) cmdFavourites(ctx context.Context, args []string) error {
	switch {
	case len(args) == 0:
		if err := application.catalog.LoadFavourites(ctx); err != nil {
			return errors.New(apperr.Message(err))
		}
		for _, car := range application.catalog.Favourites.Snapshot().Items {
			fmt.Printf("%-36s  %4d %s %s\n", car.ID, car.Year, car.Make, car.Model)
		}
		return nil
	case args[0] == "add" && len(args) == 2:
		return clean(application.catalog.AddFavourite(ctx, args[1]))
	case args[0] == "remove" && len(args) == 2:
		return clean(application.catalog.RemoveFavourite(ctx, args[1]))
	default:
		return errors.New("usage: carvia favourites [add <car-id> | remove <car-id>]")
	}
}

func (application *app) cmdFriends(ctx context.Context, args []string) error {
	switch {
	case len(args) == 0:
		if err := application.social.LoadFriends(ctx); err != nil {
			return errors.New(apperr.Message(err))
		}
		for _, friend := range application.social.Friends.Snapshot().Items {
			name := friend.UserID
			if friend.User != nil {
				name = friend.User.Username
			}
			fmt.Printf("%-24s  friends since %s\n", name, friend.FriendsSince.Format("2006-01-02"))
		}
		return nil

	case args[0] == "requests":
		if err := application.social.LoadRequests(ctx); err != nil {
			return errors.New(apperr.Message(err))
		}
		fmt.Println("received:")
		for _, request := range application.social.PendingReceived.Snapshot().Items {
			fmt.Printf("  %-36s  from %s\n", request.ID, request.RequesterID)
		}
		fmt.Println("sent:")
		for _, request := range application.social.PendingSent.Snapshot().Items {
			fmt.Printf("  %-36s  to %s\n", request.ID, request.AddresseeID)
		}
		return nil

	case args[0] == "send" && len(args) == 2:
		_, err := application.social.SendRequest(ctx, args[1])
		return clean(err)
	case args[0] == "accept" && len(args) == 2:
		_, err := application.social.Accept(ctx, args[1])
		return clean(err)
	case args[0] == "reject" && len(args) == 2:
		return clean(application.social.Reject(ctx, args[1]))
	case args[0] == "cancel" && len(args) == 2:
		return clean(application.social.Cancel(ctx, args[1]))
	case args[0] == "remove" && len(args) == 2:
		return clean(application.social.Remove(ctx, args[1]))
	default:
		return errors.New("usage: carvia friends [send|accept|reject|cancel|remove|requests]")
	}
}

func (application *app) cmdChat(ctx context.Context, args []string) error {
	switch {
	case len(args) == 0:
		if err := application.chat.LoadConversations(ctx); err != nil {
			return errors.New(apperr.Message(err))
		}
		for _, conversation := range application.chat.Conversations.Snapshot().Items {
			last := pointer.Val(conversation.LastMessage)
			fmt.Printf("%-24s  unread=%d  %s\n", conversation.CounterpartID, conversation.UnreadCount, last.Content)
		}
		return nil

	case args[0] == "history" && len(args) == 2:
		messages, err := application.chat.History(ctx, args[1])
		if err != nil {
			return errors.New(apperr.Message(err))
		}
		for _, message := range messages {
			fmt.Printf("[%s] %s: %s\n", message.SentAt.Format(time.Kitchen), message.SenderID, message.Content)
		}
		return nil

	case args[0] == "send" && len(args) == 3:
		// Sends ride the realtime connection; bring it up first.
		if err := application.chatHub.Connect(ctx); err != nil {
			return errors.New(apperr.Message(err))
		}
		defer application.chatHub.Disconnect()
		return clean(application.chat.Send(ctx, args[1], args[2]))

	case args[0] == "read" && len(args) == 3:
		if err := application.chatHub.Connect(ctx); err != nil {
			return errors.New(apperr.Message(err))
		}
		defer application.chatHub.Disconnect()
		return clean(application.chat.MarkRead(ctx, args[1], args[2]))

	default:
		return errors.New("usage: carvia chat [history <user-id> | send <user-id> <message> | read <user-id> <message-id>]")
	}
}

func (application *app) cmdImpersonate(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: carvia impersonate <user-id> | carvia impersonate stop")
	}

	if args[0] == "stop" {
		if err := application.account.StopImpersonation(); err != nil {
			return errors.New(apperr.Message(err))
		}
		fmt.Println("impersonation stopped; your own session is restored")
		return nil
	}

	target, err := application.account.StartImpersonation(ctx, args[0])
	if err != nil {
		return errors.New(apperr.Message(err))
	}
	fmt.Printf("now acting as %s\n", target.Username)
	return nil
}

// cmdWatch connects both hubs and prints bus traffic until interrupted —
// the full realtime data flow, end to end.
func (application *app) cmdWatch(ctx context.Context) error {
	if !application.sessions.IsValid() {
		return errors.New("sign in first: carvia login <username> <password>")
	}

	if err := application.chatHub.Connect(ctx); err != nil {
		return errors.New(apperr.Message(err))
	}
	defer application.chatHub.Disconnect()

	if err := application.friendHub.Connect(ctx); err != nil {
		return errors.New(apperr.Message(err))
	}
	defer application.friendHub.Disconnect()

	application.watchBus()

	fmt.Println("watching... Ctrl-C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	fmt.Println("\nstopped")
	return nil
}

// watchBus echoes every realtime-driven bus signal to the terminal.
func (application *app) watchBus() {
	for _, topic := range []eventbus.Topic{
		eventbus.TopicMessageReceived,
		eventbus.TopicMessagesMarkedRead,
		eventbus.TopicMessageRequestAccepted,
		eventbus.TopicFriendRequestSent,
		eventbus.TopicFriendRequestRejected,
		eventbus.TopicFriendRemoved,
		eventbus.TopicAuthStateChanged,
		eventbus.TopicImpersonationStopped,
	} {
		application.bus.Subscribe(topic, func(payload any) {
			fmt.Printf("[%s] %s: %+v\n", time.Now().Format(time.Kitchen), topic, payload)
		})
	}
}

// clean maps a service error onto its display message for the terminal.
func clean(err error) error {
	if err != nil {
		return errors.New(apperr.Message(err))
	}
	return nil
}

func formatPrice(price int64) string {
	return "€" + formatInt(int(price))
}

// formatInt renders 1234567 as "1,234,567".
func formatInt(value int) string {
	raw := strconv.Itoa(value)
	for i := len(raw) - 3; i > 0; i -= 3 {
		raw = raw[:i] + "," + raw[i:]
	}
	return raw
}
