// Package menu builds the text and inline keyboards of every screen, and
// decides which chat message a screen is drawn on.
//
// Views are pure: they take already loaded data and never touch a store.
// Text uses the legacy Markdown subset (*bold*, `mono`). User provided names
// are escaped and always kept outside of entities.
package menu

import (
	"fmt"
	"locals-bot/domain"
	"strings"

	"github.com/samber/lo"
)

type View struct {
	Text     string
	Keyboard domain.Keyboard
}

// User facing notices.
const (
	NoticeNotFound           = "❗ Local or peer not found, or you don't have access to it."
	NoticeNameTaken          = "❗ This name is already taken in this local. Choose another one."
	NoticeInvalidName        = "❗ Names must be 1 to 64 characters long, without control characters."
	NoticeAddressesExhausted = "❗ No free address left in this local."
	NoticeBlocksExhausted    = "❗ No free network could be found right now. Please try again later."
	NoticeGenericError       = "❗ Something went wrong. Please try again later."
	NoticeTopUpUnavailable   = "💳 Top up is not available yet."
	NoticeNoPendingLocal     = "❗ Nothing is waiting for a name here. Open a local first."
)

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// Escape makes s safe to embed in legacy Markdown outside of an entity.
func Escape(s string) string {
	return markdownEscaper.Replace(s)
}

func button(text, data string) domain.Button {
	return domain.Button{Text: text, Data: data}
}

func withNotice(notice, text string) string {
	if notice == "" {
		return text
	}
	return notice + "\n\n" + text
}

func MainMenu(account domain.Account, localsCount int) View {
	text := fmt.Sprintf("✨ *Main menu* ✨\n\n"+
		"💰 *Balance:* %s\n"+
		"📂 *Your locals:* %d\n\n"+
		"🔽 *Choose an action:*", account.Balance, localsCount)
	return View{
		Text: text,
		Keyboard: domain.Keyboard{
			domain.Row(button("📁 My locals", ActionMyLocals)),
			domain.Row(button("💳 Top up", ActionTopUp)),
		},
	}
}

func LocalList(locals []domain.LocalSummary) View {
	if len(locals) == 0 {
		return View{
			Text: "📭 You don't have any locals yet.",
			Keyboard: domain.Keyboard{
				domain.Row(button("➕ Create local", ActionNewLocal)),
				domain.Row(button("🔙 Back", ActionBackToMain)),
			},
		}
	}

	keyboard := lo.Map(locals, func(l domain.LocalSummary, _ int) []domain.Button {
		label := fmt.Sprintf("📁 %s %s [%d/%d]", l.Name, l.Block, l.PeerCount, domain.HostCapacity)
		return domain.Row(button(label, WithID(PrefixLocal, l.ID)))
	})
	keyboard = append(keyboard,
		domain.Row(button("➕ Create local", ActionNewLocal)),
		domain.Row(button("🔙 Back", ActionBackToMain)),
	)
	return View{Text: "📂 *Your locals:*", Keyboard: keyboard}
}

func peerLines(peers []domain.Peer) string {
	if len(peers) == 0 {
		return "👤 No peers yet."
	}
	lines := lo.Map(peers, func(p domain.Peer, _ int) string {
		return fmt.Sprintf("- %s: `%s`", Escape(p.Name), p.Address)
	})
	return "👥 *Peers:*\n" + strings.Join(lines, "\n")
}

// LocalOverview shows the local with its peers. notice, when set, is shown on top.
func LocalOverview(local domain.Local, peers []domain.Peer, notice string) View {
	text := fmt.Sprintf("📁 %s\n🌐 *Network:* `%s`\n\n%s\n\n🔽 *Choose an action:*",
		Escape(local.Name), local.Block, peerLines(peers))
	return View{
		Text: withNotice(notice, text),
		Keyboard: domain.Keyboard{
			domain.Row(
				button("👥 Peers", WithID(PrefixPeers, local.ID)),
				button("➕ Add peer", WithID(PrefixAddPeer, local.ID)),
			),
			domain.Row(button("⚙️ Settings", WithID(PrefixLocalSettings, local.ID))),
			domain.Row(button("🔙 Back", ActionMyLocals)),
		},
	}
}

func LocalSettings(local domain.Local) View {
	return View{
		Text: fmt.Sprintf("⚙️ *Settings of* %s\n🌐 `%s`", Escape(local.Name), local.Block),
		Keyboard: domain.Keyboard{
			domain.Row(button("🗑️ Delete local", WithID(PrefixDeleteLocal, local.ID))),
			domain.Row(button("🔙 Back", WithID(PrefixLocal, local.ID))),
		},
	}
}

func ConfirmDeleteLocal(local domain.Local) View {
	return View{
		Text: fmt.Sprintf("⚠️ Delete %s and all of its peers? This cannot be undone.", Escape(local.Name)),
		Keyboard: domain.Keyboard{
			domain.Row(button("✅ Yes, delete", WithID(PrefixConfirmDeleteLocal, local.ID))),
			domain.Row(button("❌ Cancel", WithID(PrefixLocalSettings, local.ID))),
		},
	}
}

func PeerList(local domain.Local, peers []domain.Peer) View {
	keyboard := lo.Map(peers, func(p domain.Peer, _ int) []domain.Button {
		return domain.Row(button(fmt.Sprintf("👤 %s %s", p.Name, p.Address), WithID(PrefixPeer, p.ID)))
	})
	keyboard = append(keyboard,
		domain.Row(button("➕ Add peer", WithID(PrefixAddPeer, local.ID))),
		domain.Row(button("🔙 Back", WithID(PrefixLocal, local.ID))),
	)
	text := fmt.Sprintf("👥 *Peers of* %s [%d/%d]", Escape(local.Name), len(peers), domain.HostCapacity)
	if len(peers) == 0 {
		text += "\n\n👤 No peers yet."
	}
	return View{Text: text, Keyboard: keyboard}
}

func PeerSettings(local domain.Local, peer domain.Peer, notice string) View {
	text := fmt.Sprintf("👤 %s\n📁 *Local:* %s\n🌐 *Address:* `%s`",
		Escape(peer.Name), Escape(local.Name), peer.Address)
	return View{
		Text: withNotice(notice, text),
		Keyboard: domain.Keyboard{
			domain.Row(
				button("✏️ Rename", WithID(PrefixRenamePeer, peer.ID)),
				button("🗑️ Delete", WithID(PrefixDeletePeer, peer.ID)),
			),
			domain.Row(button("🔙 Back", WithID(PrefixPeers, local.ID))),
		},
	}
}

func ConfirmDeletePeer(peer domain.Peer) View {
	return View{
		Text: fmt.Sprintf("⚠️ Delete peer %s (`%s`)?", Escape(peer.Name), peer.Address),
		Keyboard: domain.Keyboard{
			domain.Row(button("✅ Yes, delete", WithID(PrefixConfirmDeletePeer, peer.ID))),
			domain.Row(button("❌ Cancel", WithID(PrefixPeer, peer.ID))),
		},
	}
}

func CreateLocalPrompt() View {
	return View{
		Text: "📝 Send a name for the new local, or generate a random one.",
		Keyboard: domain.Keyboard{
			domain.Row(button("🎲 Random name", ActionGenerateRandomName)),
			domain.Row(button("❌ Cancel", ActionMyLocals)),
		},
	}
}

func CreatePeerPrompt(local domain.Local, notice string) View {
	text := fmt.Sprintf("📝 Send a name for the new peer of %s, or generate a random one.", Escape(local.Name))
	return View{
		Text: withNotice(notice, text),
		Keyboard: domain.Keyboard{
			domain.Row(button("🎲 Random name", ActionGenerateRandomPeerName)),
			domain.Row(button("❌ Cancel", WithID(PrefixLocal, local.ID))),
		},
	}
}

func RenamePeerPrompt(peer domain.Peer) View {
	return View{
		Text: fmt.Sprintf("✏️ Send a new name for %s.", Escape(peer.Name)),
		Keyboard: domain.Keyboard{
			domain.Row(button("❌ Cancel", WithID(PrefixPeer, peer.ID))),
		},
	}
}

func Welcome(profile domain.Profile) string {
	return fmt.Sprintf("🎉 Welcome, %s! You are now registered.", Escape(profile.DisplayName()))
}

func Help() string {
	return "ℹ️ *Help*\n\n" +
		"/start opens the main menu.\n" +
		"Create a local to get a private /24 network, then add peers to it. " +
		"Every peer gets the lowest free address of its local."
}
