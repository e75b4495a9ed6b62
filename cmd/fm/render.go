package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/views"
)

func price(p model.Product) string {
	if p.Status == model.StatusConsidering {
		return "price tbd"
	}
	return "¥" + humanize.Comma(int64(p.Price))
}

func likes(p model.Product) string {
	heart := "♡"
	if p.LikedByMe {
		heart = "♥"
	}
	return fmt.Sprintf("%s %d", heart, p.LikeCount)
}

func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func productLine(w io.Writer, i int, p model.Product, liking bool) {
	status := ""
	if p.Status != model.StatusAvailable {
		status = " [" + string(p.Status) + "]"
	}
	busy := ""
	if liking {
		busy = " …"
	}
	fmt.Fprintf(w, "%3d. %-28s %12s  %s%s%s\n", i+1, p.Title, price(p), likes(p), busy, status)
}

func errLine(w io.Writer, msg string) {
	if msg != "" {
		fmt.Fprintf(w, "! %s\n", msg)
	}
}

// render draws the mounted view.
func render(w io.Writer, v views.View) {
	switch v := v.(type) {
	case *views.Login:
		fmt.Fprintln(w, "== Login ==")
		if v.Busy {
			fmt.Fprintln(w, "signing in…")
		}
		errLine(w, v.Err)
		fmt.Fprintln(w, "commands: login <user> | signup")

	case *views.Signup:
		fmt.Fprintln(w, "== Sign up ==")
		errLine(w, v.Err)
		fmt.Fprintf(w, "MBTI types: %s\n", strings.Join(model.MBTITypes, " "))
		fmt.Fprintln(w, "commands: signup <user> <mbti> [display name] | login")

	case *views.Home:
		fmt.Fprintln(w, "== Home ==")
		if v.Query != "" {
			fmt.Fprintf(w, "search: %q\n", v.Query)
		}
		if v.Loading && !v.Loaded {
			fmt.Fprintln(w, "loading…")
		}
		list := v.Products()
		if v.Loaded && len(list) == 0 {
			fmt.Fprintln(w, "no listings")
		}
		for i, p := range list {
			productLine(w, i, p, v.Liking(p.ID))
		}
		errLine(w, v.Err)
		fmt.Fprintln(w, "commands: open <n> | like <n> | search [text] | refresh | sell | me")

	case *views.ProductDetail:
		fmt.Fprintln(w, "== Listing ==")
		p, ok := v.Product()
		switch {
		case v.NotFound():
			fmt.Fprintln(w, "this listing does not exist")
		case !ok:
			fmt.Fprintln(w, "loading…")
		default:
			fmt.Fprintf(w, "%s\n%s  %s  [%s]\n", p.Title, price(p), likes(p), p.Status)
			fmt.Fprintf(w, "seller: %s  listed %s\n", v.SellerName, ago(p.CreatedAt))
			if p.ImageURL != "" {
				fmt.Fprintf(w, "image: %s\n", p.ImageURL)
			}
			fmt.Fprintf(w, "\n%s\n", p.Description)
		}
		switch {
		case v.Summarizing:
			fmt.Fprintln(w, "summary: generating…")
		case v.SummaryErr != "":
			fmt.Fprintf(w, "summary: %s\n", v.SummaryErr)
		case v.Summary != "":
			fmt.Fprintf(w, "summary: %s\n", v.Summary)
		}
		errLine(w, v.Err)
		if v.Own() {
			fmt.Fprintln(w, "commands: like | inbox | summary | refresh | back")
		} else {
			fmt.Fprintln(w, "commands: like | buy | msg | summary | refresh | back")
		}

	case *views.CreateListing:
		fmt.Fprintln(w, "== New listing ==")
		if v.Busy {
			fmt.Fprintln(w, "publishing…")
		}
		errLine(w, v.Err)
		fmt.Fprintln(w, "commands: new | cancel")

	case *views.Inbox:
		fmt.Fprintln(w, "== Inbox ==")
		if v.Loading {
			fmt.Fprintln(w, "loading…")
		}
		if !v.Loading && len(v.Users) == 0 {
			fmt.Fprintln(w, "no messages yet")
		}
		for i, u := range v.Users {
			fmt.Fprintf(w, "%3d. %s (%s)\n", i+1, u.DisplayName, u.UserID)
		}
		errLine(w, v.Err)
		fmt.Fprintln(w, "commands: open <n> | refresh | back")

	case *views.Chat:
		fmt.Fprintf(w, "== Chat with %s ==\n", v.OtherUserName)
		if v.Loading {
			fmt.Fprintln(w, "loading…")
		}
		for _, m := range v.Messages() {
			who := v.OtherUserName
			if v.Mine(m) {
				who = "me"
			}
			fmt.Fprintf(w, "[%s] %s: %s\n", ago(m.CreatedAt), who, m.Body)
		}
		if v.Sending() {
			fmt.Fprintln(w, "sending…")
		}
		errLine(w, v.Err)
		fmt.Fprintln(w, "commands: say <text> | refresh | product")

	case *views.MyPage:
		fmt.Fprintln(w, "== My page ==")
		fmt.Fprintf(w, "%s (%s)", v.Profile.Name(), v.Profile.UserID)
		if v.Profile.MBTI != "" {
			fmt.Fprintf(w, "  %s", v.Profile.MBTI)
		}
		fmt.Fprintln(w)
		errLine(w, v.ProfileErr)
		list := v.Listings()
		if v.Loaded && len(list) == 0 {
			fmt.Fprintln(w, "you have no listings")
		}
		for i, p := range list {
			productLine(w, i, p, v.Liking(p.ID))
		}
		errLine(w, v.Err)
		fmt.Fprintln(w, "commands: open <n> | sell | logout | home")

	case *views.PurchaseConfirm:
		fmt.Fprintln(w, "== Purchase ==")
		p, ok := v.Product()
		switch {
		case v.NotFound():
			fmt.Fprintln(w, "this listing does not exist")
		case ok:
			fmt.Fprintf(w, "%s  %s  from %s\n", p.Title, price(p), v.SellerName)
		}
		if v.Buying() {
			fmt.Fprintln(w, "purchasing…")
		}
		errLine(w, v.Err)
		fmt.Fprintln(w, "commands: pay | back")

	case *views.PurchaseDone:
		fmt.Fprintln(w, "== Thank you ==")
		fmt.Fprintf(w, "your purchase is complete; %s will be in touch\n", v.SellerName)
		fmt.Fprintln(w, "commands: contact | home")
	}
}

// listed returns the products the mounted view numbers on screen.
func listed(v views.View) []model.Product {
	switch v := v.(type) {
	case *views.Home:
		return v.Products()
	case *views.MyPage:
		return v.Listings()
	}
	return nil
}
