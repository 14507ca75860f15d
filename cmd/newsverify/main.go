// Command newsverify is the attester-side CLI: local key management, content
// hashing, and signed submissions against a newsverifyd daemon.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/LJ-Solana/solana-news-app-sub000/attest"
	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
	"github.com/LJ-Solana/solana-news-app-sub000/keys"
	"github.com/LJ-Solana/solana-news-app-sub000/model"
	"github.com/LJ-Solana/solana-news-app-sub000/rpc"
)

const defaultServer = "localhost:9090"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "hash":
		return cmdHash(args[1:], out, errOut)
	case "digest":
		return cmdDigest(args[1:], out, errOut)
	case "submit":
		return cmdSubmit(args[1:], out, errOut)
	case "rate":
		return cmdRate(args[1:], out, errOut)
	case "aggregate":
		return cmdAggregate(args[1:], out, errOut)
	case "status":
		return cmdStatus(args[1:], out, errOut)
	case "finalize":
		return cmdFinalize(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "newsverify: verification ledger client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  newsverify key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  newsverify key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  newsverify key list")
	fmt.Fprintln(w, "  newsverify key export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  newsverify hash --title <t> --description <d>")
	fmt.Fprintln(w, "  newsverify digest [--alg sha256|sha512|sha3-256] <file>")
	fmt.Fprintln(w, "  newsverify submit --slug <s> --title <t> --description <d> --source <url> [--author <key>] (--seed-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>) [--server <addr>]")
	fmt.Fprintln(w, "  newsverify rate --content-hash <hex> --rating <1-5> (--seed-hex ... | --signer ... | --key-file ...) [--server <addr>]")
	fmt.Fprintln(w, "  newsverify aggregate --content-hash <hex> [--server <addr>]")
	fmt.Fprintln(w, "  newsverify status --slug <s> [--server <addr>]")
	fmt.Fprintln(w, "  newsverify finalize --content-hash <hex> [--server <addr>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - keys are stored as ~/.newsverify/keys/<name>[.<role>].key (0600 seed files)")
	fmt.Fprintln(w, "  - the default server is "+defaultServer+" (plaintext gRPC)")
}

func dial(server string) (*grpc.ClientConn, error) {
	if server == "" {
		server = defaultServer
	}
	return grpc.NewClient(server, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// loadSigner resolves the signing seed from the flags shared by submit and
// rate.
func loadSigner(seedHex, signer, signerRole, keyFile string) (ed25519.PrivateKey, string, error) {
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		return nil, "", err
	}
	seed, err := ks.LoadSeed(seedHex, signer, signerRole, keyFile)
	if err != nil {
		return nil, "", err
	}
	return keys.PrivateKeyFromSeed(seed), keys.AttesterKeyFromSeed(seed), nil
}

func printCodedError(errOut io.Writer, err error) {
	var ce *model.CodedError
	if errors.As(err, &ce) {
		fmt.Fprintf(errOut, "%s: %s\n", ce.Code, ce.Message)
		return
	}
	fmt.Fprintf(errOut, "error: %v\n", err)
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: newsverify key <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: init, derive, list, export")
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keystore: %v\n", err)
		return 1
	}

	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("key init", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var name, seedHex string
		var force bool
		fs.StringVar(&name, "name", "", "identity name")
		fs.StringVar(&seedHex, "seed-hex", "", "ed25519 seed (64 hex chars); random when omitted")
		fs.BoolVar(&force, "force", false, "overwrite an existing key")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if name == "" {
			fmt.Fprintln(errOut, "usage: newsverify key init --name <name> [--seed-hex <64hex>] [--force]")
			return 2
		}
		var seed []byte
		if seedHex != "" {
			seed, err = keys.ParseSeedHex(seedHex)
			if err != nil {
				fmt.Fprintf(errOut, "invalid seed: %v\n", err)
				return 1
			}
		} else {
			seed = make([]byte, ed25519.SeedSize)
			if _, err := rand.Read(seed); err != nil {
				fmt.Fprintf(errOut, "generate seed: %v\n", err)
				return 1
			}
		}
		key, path, err := ks.InitializeRootKey(name, seed, force)
		if err != nil {
			fmt.Fprintf(errOut, "init key: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "attester key: %s\n", key)
		fmt.Fprintf(out, "seed file:    %s\n", path)
		return 0

	case "derive":
		fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var from, role string
		var force bool
		fs.StringVar(&from, "from", "", "root identity name")
		fs.StringVar(&role, "role", "", "role name (verify or rate)")
		fs.BoolVar(&force, "force", false, "overwrite an existing role key")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if from == "" || role == "" {
			fmt.Fprintln(errOut, "usage: newsverify key derive --from <name> --role <role> [--force]")
			return 2
		}
		key, path, err := ks.DeriveKeyFromRole(from, role, force)
		if err != nil {
			fmt.Fprintf(errOut, "derive key: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "attester key: %s\n", key)
		fmt.Fprintf(out, "seed file:    %s\n", path)
		return 0

	case "list":
		entries, err := ks.ListKeys()
		if err != nil {
			fmt.Fprintf(errOut, "list keys: %v\n", err)
			return 1
		}
		for _, e := range entries {
			line := e.Name
			if e.AttesterKey != "" {
				line += "\t" + e.AttesterKey
			}
			if len(e.Roles) > 0 {
				line += "\t(roles: " + strings.Join(e.Roles, ", ") + ")"
			}
			fmt.Fprintln(out, line)
		}
		return 0

	case "export":
		fs := flag.NewFlagSet("key export", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var name, role string
		fs.StringVar(&name, "name", "", "identity name")
		fs.StringVar(&role, "role", "", "role name (optional)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if name == "" {
			fmt.Fprintln(errOut, "usage: newsverify key export --name <name> [--role <role>]")
			return 2
		}
		key, err := ks.ExportKey(name, role)
		if err != nil {
			fmt.Fprintf(errOut, "export key: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, key)
		return 0

	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n", args[0])
		return 2
	}
}

func cmdHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var title, description string
	fs.StringVar(&title, "title", "", "content title")
	fs.StringVar(&description, "description", "", "content description")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if title == "" {
		fmt.Fprintln(errOut, "usage: newsverify hash --title <t> --description <d>")
		return 2
	}
	h := contentid.HashContent(title, description)
	addr, err := contentid.DeriveAddress(contentid.Namespace, h)
	if err != nil {
		fmt.Fprintf(errOut, "derive address: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "content hash: %s\n", h.Hex())
	fmt.Fprintf(out, "address:      %s\n", addr)
	return 0
}

// cmdDigest fingerprints an evidence file so the digest can be quoted in the
// submitted source data.
func cmdDigest(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("digest", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var alg string
	fs.StringVar(&alg, "alg", "sha256", "digest algorithm: sha256, sha512, sha3-256")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: newsverify digest [--alg sha256|sha512|sha3-256] <file>")
		return 2
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read: %v\n", err)
		return 1
	}
	sum, err := keys.DigestFor(alg, data)
	if err != nil {
		fmt.Fprintf(errOut, "digest: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s:%s\n", alg, hex.EncodeToString(sum))
	return 0
}

func cmdSubmit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server, slug, title, description, source, author string
	var seedHex, signer, signerRole, keyFile string
	fs.StringVar(&server, "server", defaultServer, "daemon address")
	fs.StringVar(&slug, "slug", "", "content slug")
	fs.StringVar(&title, "title", "", "content title")
	fs.StringVar(&description, "description", "", "content description")
	fs.StringVar(&source, "source", "", "evidence source (URL or text)")
	fs.StringVar(&author, "author", "", "author public key, excluded from rating (optional)")
	fs.StringVar(&seedHex, "seed-hex", "", "literal ed25519 seed")
	fs.StringVar(&signer, "signer", "", "stored identity name")
	fs.StringVar(&signerRole, "signer-role", "", "stored identity role")
	fs.StringVar(&keyFile, "key-file", "", "seed file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if slug == "" || title == "" || source == "" {
		fmt.Fprintln(errOut, "usage: newsverify submit --slug <s> --title <t> --description <d> --source <url> (--seed-hex | --signer | --key-file)")
		return 2
	}
	priv, attesterKey, err := loadSigner(seedHex, signer, signerRole, keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 1
	}

	hash := contentid.HashContent(title, description)
	req := model.SubmitVerificationRequest{
		ContentHash: hash.Hex(),
		Slug:        slug,
		AttesterKey: attesterKey,
		Signature:   attest.SignEd25519(attest.Message(slug, source), priv),
		SourceData:  source,
		AuthorKey:   author,
	}

	conn, err := dial(server)
	if err != nil {
		fmt.Fprintf(errOut, "connect: %v\n", err)
		return 1
	}
	defer conn.Close()
	ctx, cancel := callCtx()
	defer cancel()

	resp, err := rpc.NewClient(conn).SubmitVerification(ctx, req)
	if err != nil {
		printCodedError(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "content hash: %s\n", resp.ContentHash)
	fmt.Fprintf(out, "address:      %s\n", resp.Address)
	if resp.ClaimCID != "" {
		fmt.Fprintf(out, "claim cid:    %s\n", resp.ClaimCID)
	}
	fmt.Fprintf(out, "rating ends:  %s\n", resp.RatingEndTime.Format(time.RFC3339))
	return 0
}

func cmdRate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("rate", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server, contentHash string
	var ratingVal int
	var seedHex, signer, signerRole, keyFile string
	fs.StringVar(&server, "server", defaultServer, "daemon address")
	fs.StringVar(&contentHash, "content-hash", "", "hex content hash")
	fs.IntVar(&ratingVal, "rating", 0, "score from 1 to 5")
	fs.StringVar(&seedHex, "seed-hex", "", "literal ed25519 seed")
	fs.StringVar(&signer, "signer", "", "stored identity name")
	fs.StringVar(&signerRole, "signer-role", "", "stored identity role")
	fs.StringVar(&keyFile, "key-file", "", "seed file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if contentHash == "" || ratingVal < 1 || ratingVal > 5 {
		fmt.Fprintln(errOut, "usage: newsverify rate --content-hash <hex> --rating <1-5> (--seed-hex | --signer | --key-file)")
		return 2
	}
	_, raterKey, err := loadSigner(seedHex, signer, signerRole, keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 1
	}

	conn, err := dial(server)
	if err != nil {
		fmt.Fprintf(errOut, "connect: %v\n", err)
		return 1
	}
	defer conn.Close()
	ctx, cancel := callCtx()
	defer cancel()

	resp, err := rpc.NewClient(conn).SubmitRating(ctx, model.SubmitRatingRequest{
		ContentHash: contentHash,
		RaterKey:    raterKey,
		Rating:      uint8(ratingVal),
	})
	if err != nil {
		printCodedError(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "tx ref: %s\n", resp.TxRef)
	return 0
}

func cmdAggregate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("aggregate", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server, contentHash string
	fs.StringVar(&server, "server", defaultServer, "daemon address")
	fs.StringVar(&contentHash, "content-hash", "", "hex content hash")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if contentHash == "" {
		fmt.Fprintln(errOut, "usage: newsverify aggregate --content-hash <hex>")
		return 2
	}

	conn, err := dial(server)
	if err != nil {
		fmt.Fprintf(errOut, "connect: %v\n", err)
		return 1
	}
	defer conn.Close()
	ctx, cancel := callCtx()
	defer cancel()

	resp, err := rpc.NewClient(conn).GetAggregate(ctx, contentHash)
	if err != nil {
		printCodedError(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "total ratings: %d\n", resp.TotalRatings)
	fmt.Fprintf(out, "sum:           %d\n", resp.SumOfRatings)
	if resp.Average != nil {
		fmt.Fprintf(out, "average:       %.2f\n", *resp.Average)
	} else {
		fmt.Fprintln(out, "average:       (no ratings yet)")
	}
	return 0
}

func cmdStatus(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server, slug string
	fs.StringVar(&server, "server", defaultServer, "daemon address")
	fs.StringVar(&slug, "slug", "", "content slug")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if slug == "" {
		fmt.Fprintln(errOut, "usage: newsverify status --slug <s>")
		return 2
	}

	conn, err := dial(server)
	if err != nil {
		fmt.Fprintf(errOut, "connect: %v\n", err)
		return 1
	}
	defer conn.Close()
	ctx, cancel := callCtx()
	defer cancel()

	resp, err := rpc.NewClient(conn).GetStatus(ctx, slug)
	if err != nil {
		printCodedError(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "slug:        %s\n", resp.Slug)
	fmt.Fprintf(out, "verified:    %v\n", resp.Verified)
	if resp.VerifiedBy != "" {
		fmt.Fprintf(out, "verified by: %s\n", resp.VerifiedBy)
	}
	if resp.OnChainRef != "" {
		fmt.Fprintf(out, "reference:   %s\n", resp.OnChainRef)
	}
	return 0
}

func cmdFinalize(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("finalize", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server, contentHash string
	fs.StringVar(&server, "server", defaultServer, "daemon address")
	fs.StringVar(&contentHash, "content-hash", "", "hex content hash")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if contentHash == "" {
		fmt.Fprintln(errOut, "usage: newsverify finalize --content-hash <hex>")
		return 2
	}

	conn, err := dial(server)
	if err != nil {
		fmt.Fprintf(errOut, "connect: %v\n", err)
		return 1
	}
	defer conn.Close()
	ctx, cancel := callCtx()
	defer cancel()

	resp, err := rpc.NewClient(conn).FinalizeRating(ctx, contentHash)
	if err != nil {
		printCodedError(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "finalized:     %s\n", resp.ContentHash)
	fmt.Fprintf(out, "total ratings: %d\n", resp.TotalRatings)
	fmt.Fprintf(out, "sum:           %d\n", resp.SumOfRatings)
	return 0
}
