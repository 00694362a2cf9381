package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"git.gammaspectra.live/P2Pool/sharechain/monero/address"
	"git.gammaspectra.live/P2Pool/sharechain/monero/randomx"
	"git.gammaspectra.live/P2Pool/sharechain/p2pool/sidechain"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
	fasthex "github.com/tmthrgd/go-hex"
	"github.com/ulikunitz/xz"
)

const Version = "P2Pool PoolBlock inspector v1.0"

func main() {
	consensusPreset := flag.String("consensus", "default", "Side chain preset: default, mini or nano")
	consensusConfig := flag.String("consensus-config", "", "Path to a side chain consensus JSON file, overrides -consensus")
	isHex := flag.Bool("hex", false, "Input is a single hex encoded block")
	isDump := flag.Bool("dump", false, "Input is a dump of uint32 length prefixed blocks, xz compressed if the file name ends in .xz")
	skipConsensus := flag.Bool("no-consensus-check", false, "Skip major version and side chain id checks")
	walletAddress := flag.String("address", "", "Miner wallet address to resolve the payout of")
	seedHash := flag.String("seed", "", "RandomX seed hash, enables proof of work hashing")
	powHeight := flag.Uint64("height", 0, "Height to hash at, defaults to the miner transaction height")
	fullMemory := flag.Bool("full-memory", false, "Use RandomX full memory mode")
	pretty := flag.Bool("pretty", false, "Indent JSON output")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// stdout carries the JSON output
	utils.SetLogOutput(os.Stderr)

	if *debug {
		utils.GlobalLogLevel |= utils.LogLevelDebug
	}

	utils.Debugf("", Version)

	consensus, err := loadConsensus(*consensusPreset, *consensusConfig)
	if err != nil {
		utils.Fatalf("", "could not load consensus: %s", err)
	}

	input, err := readInput(flag.Arg(0), *isDump)
	if err != nil {
		utils.Fatalf("", "could not read input: %s", err)
	}

	derivationCache := sidechain.NewDerivationLRUCache()

	checkConsensus := consensus
	if *skipConsensus {
		utils.Noticef("", "skipping consensus checks, side chain ids are not verified")
		checkConsensus = nil
	}

	var blocks []*sidechain.PoolBlock
	switch {
	case *isDump:
		if blocks, err = sidechain.LoadPoolBlocks(checkConsensus, derivationCache, bytes.NewReader(input)); err != nil {
			utils.Fatalf("", "could not load blocks: %s", err)
		}
	default:
		if *isHex {
			if input, err = fasthex.DecodeString(strings.TrimSpace(string(input))); err != nil {
				utils.Fatalf("", "could not decode hex input: %s", err)
			}
		}
		b := sidechain.NewPoolBlock()
		if err = b.UnmarshalBinary(checkConsensus, derivationCache, input); err != nil {
			utils.Fatalf("", "could not decode block: %s", err)
		}
		blocks = append(blocks, b)
	}

	var wallet address.Interface
	if *walletAddress != "" {
		a, err := address.FromBase58(*walletAddress)
		if err != nil {
			utils.Fatalf("", "invalid address %s: %s", *walletAddress, err)
		}
		wallet = a
	}

	var hasher randomx.BlobHasher
	var seed types.Hash
	if *seedHash != "" {
		if seed, err = types.HashFromString(*seedHash); err != nil {
			utils.Fatalf("", "invalid seed hash %s: %s", *seedHash, err)
		}
		flags := []randomx.Flag{randomx.FlagSecure}
		if *fullMemory {
			flags = append(flags, randomx.FlagFullMemory)
		}
		if err = consensus.InitHasher(1, flags...); err != nil {
			utils.Fatalf("", "could not initialize RandomX: %s", err)
		}
		defer consensus.GetHasher().Close()
		hasher = randomx.NewBlobHasher(consensus.GetHasher())
	}

	encoder := utils.NewJSONEncoder(os.Stdout)

	for _, b := range blocks {
		summary, err := summarize(b, consensus, derivationCache, wallet, hasher, seed, *powHeight)
		if err != nil {
			utils.Errorf("", "block %s: %s", b.SideChainId(), err)
			os.Exit(1)
		}

		if *pretty {
			buf, err := utils.MarshalJSONIndent(summary, "    ")
			if err != nil {
				utils.Fatalf("", "could not encode summary: %s", err)
			}
			_, _ = os.Stdout.Write(append(buf, '\n'))
		} else if err = encoder.Encode(summary); err != nil {
			utils.Fatalf("", "could not encode summary: %s", err)
		}
	}
}

func loadConsensus(preset, path string) (*sidechain.Consensus, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		consensus, err := sidechain.NewConsensusFromJSON([]byte(stripJSONComments(string(data))))
		if err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
		return consensus, nil
	}

	switch preset {
	case "default", "main":
		return sidechain.ConsensusDefault, nil
	case "mini":
		return sidechain.ConsensusMini, nil
	case "nano":
		return sidechain.ConsensusNano, nil
	default:
		return nil, fmt.Errorf("unknown preset %q", preset)
	}
}

// readInput reads the named file, or stdin when empty or "-"
func readInput(path string, decompress bool) ([]byte, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f

		if decompress && strings.HasSuffix(path, ".xz") {
			if r, err = xz.NewReader(f); err != nil {
				return nil, err
			}
		}
	}
	return io.ReadAll(r)
}

// stripJSONComments removes // line comments
func stripJSONComments(jsonStr string) string {
	lines := strings.Split(jsonStr, "\n")
	var cleaned []string

	for _, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
