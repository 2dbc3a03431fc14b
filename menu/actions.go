package menu

import "fmt"

// Callback identifiers carried by inline buttons.
const (
	ActionBackToMain             = "back_to_main"
	ActionMyLocals               = "my_locals"
	ActionTopUp                  = "top_up"
	ActionNewLocal               = "new_local"
	ActionGenerateRandomName     = "generate_random_name"
	ActionGenerateRandomPeerName = "generate_random_peer_name"
)

// Prefixes of identifiers that end with a numeric id.
const (
	PrefixLocal              = "local_"
	PrefixLocalSettings      = "local_settings_"
	PrefixDeleteLocal        = "delete_local_"
	PrefixConfirmDeleteLocal = "confirm_delete_local_"
	PrefixPeers              = "peers_"
	PrefixAddPeer            = "add_peer_"
	PrefixPeer               = "peer_"
	PrefixRenamePeer         = "rename_peer_"
	PrefixDeletePeer         = "delete_peer_"
	PrefixConfirmDeletePeer  = "confirm_delete_peer_"
)

func WithID[T ~int64](prefix string, id T) string {
	return fmt.Sprintf("%s%d", prefix, int64(id))
}
