// Command inspect prints the bot's stores as tables: conversation sessions
// from Badger (opened read-only), locals and peers from SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"locals-bot/domain"
	"locals-bot/repositories"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"sessions"`
	DatabasePath   string `envconfig:"DATABASE_PATH" default:"locals.db"`
	// INSPECT_COLOURS disables colorized headers when piping output
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatal("Config error: ", err)
	}
	what := flag.String("show", "all", "What to print: sessions, locals or all")
	sessionsPath := flag.String("sessions", config.BadgerFilepath, "Path to the badger session store")
	dbPath := flag.String("db", config.DatabasePath, "Path to the sqlite entity store")
	flag.Parse()

	if *what == "sessions" || *what == "all" {
		header("Sessions", config.Colours)
		if err := printSessions(*sessionsPath); err != nil {
			log.Fatal("Error while reading sessions: ", err)
		}
	}
	if *what == "locals" || *what == "all" {
		header("Locals", config.Colours)
		if err := printLocals(*dbPath); err != nil {
			log.Fatal("Error while reading locals: ", err)
		}
	}
}

func header(title string, colours bool) {
	line := fmt.Sprintf("  ====== %s ======", title)
	if colours {
		line = color.New(color.BgBlack, color.FgGreen).Render(line)
	}
	fmt.Println(line)
}

func newTable(headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printSessions(path string) error {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		return err
	}
	defer db.Close()

	table := newTable("Key", "State", "Pending local", "Pending peer", "Current local", "Menu message")
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(repositories.SessionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), repositories.SessionPrefix)
			err := item.Value(func(v []byte) error {
				session, err := repositories.DecodeSession(v)
				if err != nil {
					table.Append([]string{key, color.Red.Sprint("corrupt"), "", "", "", ""})
					return nil
				}
				table.Append(sessionRow(key, session))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func sessionRow(key string, session domain.Session) []string {
	pendingLocal, pendingPeer := "", ""
	switch state := session.State.(type) {
	case domain.AwaitingPeerName:
		pendingLocal = strconv.FormatInt(int64(state.LocalID), 10)
	case domain.AwaitingNewPeerName:
		pendingLocal = strconv.FormatInt(int64(state.LocalID), 10)
		pendingPeer = strconv.FormatInt(int64(state.PeerID), 10)
	}
	tag := string(session.Tag())
	if session.Tag() != domain.StateNone {
		tag = color.Yellow.Sprint(tag)
	}
	return []string{
		key,
		tag,
		pendingLocal,
		pendingPeer,
		optionalID(int64(session.CurrentLocalID)),
		optionalID(int64(session.MenuMessageID)),
	}
}

func optionalID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func printLocals(path string) error {
	db, err := repositories.OpenSQLiteReadOnly(path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	repo := repositories.NewEntityRepository(db, slog.Default())
	locals, err := repo.ListLocals(ctx)
	if err != nil {
		return err
	}

	table := newTable("ID", "Owner", "Name", "Block", "Peers")
	peersTable := newTable("Local", "Peer ID", "Name", "Address")
	for _, local := range locals {
		table.Append([]string{
			strconv.FormatInt(int64(local.ID), 10),
			strconv.FormatInt(int64(local.OwnerID), 10),
			local.Name,
			string(local.Block),
			fmt.Sprintf("%d/%d", local.PeerCount, domain.HostCapacity),
		})
		peers, err := repo.ListPeers(ctx, local.ID)
		if err != nil {
			return err
		}
		for _, peer := range peers {
			peersTable.Append([]string{
				local.Name,
				strconv.FormatInt(int64(peer.ID), 10),
				peer.Name,
				peer.Address,
			})
		}
	}
	table.Render()
	fmt.Println()
	peersTable.Render()
	return nil
}
