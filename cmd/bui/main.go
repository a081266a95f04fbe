package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ipfs/go-cid"

	"blocksui.xyz/ledger/checkpoint"
	"blocksui.xyz/ledger/cidutil"
	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/origin"
	"blocksui.xyz/ledger/rpc"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "origin":
		return cmdOrigin(args[1:], out, errOut)
	case "query":
		return cmdQuery(args[1:], out, errOut)
	case "checkpoint":
		return cmdCheckpoint(args[1:], out, errOut)
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
	fmt.Fprintln(w, "bui: BlocksUI ledger helper CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  bui cid to-bytes32 <cid>")
	fmt.Fprintln(w, "  bui cid from-bytes32 <0x hex>")
	fmt.Fprintln(w, "  bui cid sum <file>")
	fmt.Fprintln(w, "  bui origin hash <origin>")
	fmt.Fprintln(w, "  bui query [--target host:port] [--timeout 5s] <what> <args...>")
	fmt.Fprintln(w, "      stake <address>")
	fmt.Fprintln(w, "      block <cid>")
	fmt.Fprintln(w, "      token-uri <token-id>")
	fmt.Fprintln(w, "      block-for-token <token-id>")
	fmt.Fprintln(w, "      listing <token-id>")
	fmt.Fprintln(w, "      listings <limit> <offset>")
	fmt.Fprintln(w, "      origins <address>")
	fmt.Fprintln(w, "      verify-origin <origin> <address>")
	fmt.Fprintln(w, "      license <token-id> <origin>")
	fmt.Fprintln(w, "      balance <address>")
	fmt.Fprintln(w, "  bui checkpoint export --backend <name> --dir <dir> --out <file.tar> <cid> [<cid> ...]")
	fmt.Fprintln(w, "  bui checkpoint import --backend <name> --dir <dir> <file.tar>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - cid sum prints the CIDv0 of the file's sha2-256 digest, the form stored on-ledger")
	fmt.Fprintln(w, "  - amounts are printed in ether")
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(errOut, "usage: bui cid {to-bytes32 <cid>|from-bytes32 <hex>|sum <file>}")
		return 2
	}
	switch args[0] {
	case "to-bytes32":
		fp, err := fingerprint.FromCID(args[1])
		if err != nil {
			fmt.Fprintf(errOut, "invalid cid: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, fp.Hex())
		return 0
	case "from-bytes32":
		fp, err := fingerprint.FromHex(args[1])
		if err != nil {
			fmt.Fprintf(errOut, "invalid bytes32: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, fp.CID())
		return 0
	case "sum":
		b, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintf(errOut, "read file: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, fingerprint.Sum(b).CID())
		return 0
	default:
		fmt.Fprintf(errOut, "unknown cid subcommand: %s\n", args[0])
		return 2
	}
}

func cmdOrigin(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) != 2 || args[0] != "hash" {
		fmt.Fprintln(errOut, "usage: bui origin hash <origin>")
		return 2
	}
	_, _ = fmt.Fprintln(out, origin.Of(args[1]).Hex())
	return 0
}

func cmdQuery(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(errOut)
	target := fs.String("target", "127.0.0.1:7400", "bui-ledgerd gRPC address")
	timeout := fs.Duration("timeout", 5*time.Second, "per-call timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: bui query [--target host:port] <what> <args...>")
		return 2
	}

	client, err := rpc.Dial(*target, rpc.DialOptions{Timeout: *timeout})
	if err != nil {
		fmt.Fprintf(errOut, "dial: %v\n", err)
		return 1
	}
	defer client.Close()
	return query(context.Background(), client, fs.Args(), out, errOut)
}

func query(ctx context.Context, c *rpc.Client, args []string, out io.Writer, errOut io.Writer) int {
	what, rest := args[0], args[1:]
	want := map[string]int{
		"stake": 1, "block": 1, "token-uri": 1, "block-for-token": 1, "listing": 1,
		"listings": 2, "origins": 1, "verify-origin": 2, "license": 2, "balance": 1,
	}
	n, ok := want[what]
	if !ok {
		fmt.Fprintf(errOut, "unknown query: %s\n", what)
		return 2
	}
	if len(rest) != n {
		fmt.Fprintf(errOut, "query %s takes %d argument(s)\n", what, n)
		return 2
	}

	err := func() error {
		switch what {
		case "stake":
			id, err := ledger.ParseIdentity(rest[0])
			if err != nil {
				return err
			}
			ok, err := c.VerifyStake(ctx, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, ok)
		case "block":
			fp, err := fingerprint.FromCID(rest[0])
			if err != nil {
				return err
			}
			ok, err := c.BlockExists(ctx, fp)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, ok)
		case "token-uri":
			id, err := tokenID(rest[0])
			if err != nil {
				return err
			}
			uri, err := c.TokenURI(ctx, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, uri)
		case "block-for-token":
			id, err := tokenID(rest[0])
			if err != nil {
				return err
			}
			fp, list, err := c.BlockForToken(ctx, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, fp.CID())
			for _, o := range list {
				_, _ = fmt.Fprintf(out, "  %s\n", o)
			}
		case "listing":
			id, err := tokenID(rest[0])
			if err != nil {
				return err
			}
			l, err := c.Listing(ctx, id)
			if err != nil {
				return err
			}
			printListing(out, l.TokenID, l.Owner, l.PricePerDay, l.Licensable, l.MetadataURI)
		case "listings":
			limit, err := strconv.ParseUint(rest[0], 10, 64)
			if err != nil {
				return err
			}
			offset, err := strconv.ParseUint(rest[1], 10, 64)
			if err != nil {
				return err
			}
			page, err := c.Listings(ctx, limit, offset)
			if err != nil {
				return err
			}
			for _, l := range page {
				if l.IsZero() {
					continue
				}
				printListing(out, l.TokenID, l.Owner, l.PricePerDay, l.Licensable, l.MetadataURI)
			}
		case "origins":
			id, err := ledger.ParseIdentity(rest[0])
			if err != nil {
				return err
			}
			list, err := c.OriginsFor(ctx, id)
			if err != nil {
				return err
			}
			for _, o := range list {
				_, _ = fmt.Fprintln(out, o)
			}
		case "verify-origin":
			id, err := ledger.ParseIdentity(rest[1])
			if err != nil {
				return err
			}
			ok, err := c.VerifyOrigin(ctx, origin.Of(rest[0]), id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, ok)
		case "license":
			id, err := tokenID(rest[0])
			if err != nil {
				return err
			}
			lic, err := c.License(ctx, id, origin.Of(rest[1]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "licensee=%s expires=%s active=%t\n", lic.Licensee, lic.ExpiresAt.Format(time.RFC3339), lic.Active)
		case "balance":
			id, err := ledger.ParseIdentity(rest[0])
			if err != nil {
				return err
			}
			v, err := c.Balance(ctx, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, v)
		}
		return nil
	}()
	if err != nil {
		if k := ledger.KindOf(err); k != "" {
			fmt.Fprintf(errOut, "%s: %v\n", k, err)
		} else {
			fmt.Fprintf(errOut, "query %s: %v\n", what, err)
		}
		return 1
	}
	return 0
}

func printListing(w io.Writer, id ledger.TokenID, owner ledger.Identity, perDay ledger.Value, licensable bool, uri string) {
	_, _ = fmt.Fprintf(w, "%d\towner=%s\tprice_per_day=%s\tlicensable=%t\t%s\n", id, owner, perDay, licensable, uri)
}

func tokenID(s string) (ledger.TokenID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token id %q", s)
	}
	return ledger.TokenID(n), nil
}

func cmdCheckpoint(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: bui checkpoint {export|import} ...")
		return 2
	}
	fs := flag.NewFlagSet("checkpoint "+args[0], flag.ContinueOnError)
	fs.SetOutput(errOut)
	backend := fs.String("backend", "localfs", "checkpoint backend")
	dir := fs.String("dir", "", "checkpoint directory")
	outPath := fs.String("out", "", "archive file (export)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	cas, closeFn, err := checkpoint.Open(checkpoint.Options{Backend: *backend, Dir: *dir})
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return 1
	}
	defer func() { _ = closeFn() }()
	ctx := context.Background()

	switch args[0] {
	case "export":
		if *outPath == "" || fs.NArg() == 0 {
			fmt.Fprintln(errOut, "usage: bui checkpoint export --out <file.tar> <cid> [<cid> ...]")
			return 2
		}
		ids := make([]cid.Cid, 0, fs.NArg())
		for _, s := range fs.Args() {
			id, err := cidutil.Parse(s)
			if err != nil {
				fmt.Fprintln(errOut, err)
				return 1
			}
			ids = append(ids, id)
		}
		var buf bytes.Buffer
		if err := checkpoint.Export(ctx, &buf, cas, ids); err != nil {
			fmt.Fprintf(errOut, "export: %v\n", err)
			return 1
		}
		if err := os.WriteFile(*outPath, buf.Bytes(), 0o644); err != nil {
			fmt.Fprintf(errOut, "write archive: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(out, "exported %d checkpoint(s)\n", len(ids))
		return 0
	case "import":
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: bui checkpoint import <file.tar>")
			return 2
		}
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "open archive: %v\n", err)
			return 1
		}
		defer f.Close()
		ids, err := checkpoint.Import(ctx, f, cas)
		if err != nil {
			if errors.Is(err, checkpoint.ErrCorrupt) {
				fmt.Fprintf(errOut, "corrupt archive: %v\n", err)
			} else {
				fmt.Fprintf(errOut, "import: %v\n", err)
			}
			return 1
		}
		for _, id := range ids {
			_, _ = fmt.Fprintln(out, id)
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown checkpoint subcommand: %s\n", args[0])
		return 2
	}
}
