package domain

import "fmt"

// Network identifies a target deployment chain.
type Network string

// Supported networks.
const (
	NetworkEthereum   Network = "ethereum"
	NetworkBNB        Network = "bnb"
	NetworkGorrillazz Network = "gorrillazz"
	NetworkSolana     Network = "solana" // support withdrawn, adapter permanently disabled
)

// AllNetworks returns every network the platform knows about,
// including ones whose adapter is disabled.
func AllNetworks() []Network {
	return []Network{NetworkEthereum, NetworkBNB, NetworkGorrillazz, NetworkSolana}
}

// ParseNetwork converts a string into a Network.
func ParseNetwork(s string) (Network, error) {
	n := Network(s)
	if !n.Known() {
		return "", fmt.Errorf("unknown network %q", s)
	}
	return n, nil
}

// Known reports whether the network is part of the closed enumeration.
func (n Network) Known() bool {
	switch n {
	case NetworkEthereum, NetworkBNB, NetworkGorrillazz, NetworkSolana:
		return true
	}
	return false
}

// DefaultDecimals returns the decimals applied when a spec omits them.
func (n Network) DefaultDecimals() int {
	if n == NetworkSolana {
		return 9
	}
	return 18
}

// Venue identifies a DEX where a liquidity pool can be created.
type Venue string

// Supported liquidity venues.
const (
	VenueGorrillazz  Venue = "gorrillazz"
	VenueUniswap     Venue = "uniswap"
	VenuePancakeSwap Venue = "pancakeswap"
	VenueRaydium     Venue = "raydium"
)

// venueNetworks maps each venue to the network it operates on.
var venueNetworks = map[Venue]Network{
	VenueGorrillazz:  NetworkGorrillazz,
	VenueUniswap:     NetworkEthereum,
	VenuePancakeSwap: NetworkBNB,
	VenueRaydium:     NetworkSolana,
}

// NetworkFor returns the network a venue operates on.
func (v Venue) NetworkFor() (Network, bool) {
	n, ok := venueNetworks[v]
	return n, ok
}

// DefaultVenue returns the venue used when a liquidity request
// does not name one explicitly.
func DefaultVenue(n Network) (Venue, bool) {
	for v, net := range venueNetworks {
		if net == n {
			return v, true
		}
	}
	return "", false
}
