// main.go - Command-line client for the auction service.
//
// Marshals to the service's HTTP operations; sealing and proving happen
// locally so the bid value never leaves this process in plaintext.
//
// Usage:
//
//	auctionctl create --name "Widget" --start 100
//	auctionctl bid --id 1 --value 150 --principal alice
//	auctionctl ended --id 1 --principal alice
//	auctionctl info --id 1
//	auctionctl decrypt --handle <handle> --principal alice
//	auctionctl address
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/spf13/pflag"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "address":
		err = runAddress(args)
	case "create":
		err = runCreate(args)
	case "bid":
		err = runBid(args)
	case "ended":
		err = runEnded(args)
	case "info":
		err = runInfo(args)
	case "decrypt":
		err = runDecrypt(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctionctl %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: auctionctl <address|create|bid|ended|info|decrypt> [flags]")
}

// serverFlag registers the shared --server flag on a flag set.
func serverFlag(fs *pflag.FlagSet) *string {
	return fs.String("server", "http://localhost:8085", "auction service base URL")
}

func runAddress(args []string) error {
	fs := pflag.NewFlagSet("address", pflag.ExitOnError)
	server := serverFlag(fs)
	fs.Parse(args)

	var resp struct {
		X string `json:"x"`
		Y string `json:"y"`
	}
	if err := getJSON(*server+"/api/v1/engine/pubkey", &resp); err != nil {
		return err
	}
	fmt.Printf("server: %s\n", *server)
	fmt.Printf("engine sealing key X: %s\n", resp.X)
	fmt.Printf("engine sealing key Y: %s\n", resp.Y)
	return nil
}

func runCreate(args []string) error {
	fs := pflag.NewFlagSet("create", pflag.ExitOnError)
	server := serverFlag(fs)
	name := fs.String("name", "", "public auction name")
	start := fs.Uint64("start", 0, "start price (plaintext, visible to the creator)")
	fs.Parse(args)

	payload := map[string]interface{}{"name": *name, "start_price": *start}
	var resp struct {
		ID uint64 `json:"id"`
	}
	if err := postJSON(*server+"/api/v1/auctions", "", payload, &resp); err != nil {
		return err
	}
	fmt.Printf("auction %d created\n", resp.ID)
	return nil
}

func runBid(args []string) error {
	fs := pflag.NewFlagSet("bid", pflag.ExitOnError)
	server := serverFlag(fs)
	id := fs.Uint64("id", 0, "auction id")
	value := fs.Uint64("value", 0, "bid value (sealed locally)")
	principal := fs.String("principal", "", "caller identity")
	keyDir := fs.String("keys", "keys", "Groth16 key directory shared with the service")
	fs.Parse(args)

	if *id == 0 || *principal == "" {
		return fmt.Errorf("--id and --principal are required")
	}

	enginePub, err := fetchEnginePubKey(*server)
	if err != nil {
		return fmt.Errorf("fetch engine key: %w", err)
	}

	ccs, err := fhe.CompileBidCircuit()
	if err != nil {
		return fmt.Errorf("compile bid circuit: %w", err)
	}
	pk, _, err := fhe.SetupOrLoadKeys(ccs, *keyDir)
	if err != nil {
		return fmt.Errorf("load proving key: %w", err)
	}

	sealer := fhe.NewSealer(enginePub, pk, ccs)
	sealed, proof, err := sealer.Seal(*value)
	if err != nil {
		return fmt.Errorf("seal bid: %w", err)
	}

	ephBytes := sealed.EphPub.Bytes()
	payload := map[string]interface{}{
		"commitment": sealed.Commitment.String(),
		"masked":     sealed.Masked.String(),
		"eph_pub":    hex.EncodeToString(ephBytes[:]),
		"proof":      proof,
	}
	var resp struct {
		Handle string `json:"handle"`
	}
	url := fmt.Sprintf("%s/api/v1/auctions/%d/bids", *server, *id)
	if err := postJSON(url, *principal, payload, &resp); err != nil {
		return err
	}
	fmt.Printf("bid submitted; outcome handle: %s\n", resp.Handle)
	fmt.Println("decrypt the handle to learn whether the bid leads")
	return nil
}

func runEnded(args []string) error {
	fs := pflag.NewFlagSet("ended", pflag.ExitOnError)
	server := serverFlag(fs)
	id := fs.Uint64("id", 0, "auction id")
	principal := fs.String("principal", "", "caller identity")
	fs.Parse(args)

	if *id == 0 || *principal == "" {
		return fmt.Errorf("--id and --principal are required")
	}

	var resp struct {
		Handle string `json:"handle"`
	}
	url := fmt.Sprintf("%s/api/v1/auctions/%d/ended", *server, *id)
	if err := getJSONAs(url, *principal, &resp); err != nil {
		return err
	}
	fmt.Printf("ended flag handle: %s\n", resp.Handle)
	return nil
}

func runInfo(args []string) error {
	fs := pflag.NewFlagSet("info", pflag.ExitOnError)
	server := serverFlag(fs)
	id := fs.Uint64("id", 0, "auction id")
	fs.Parse(args)

	if *id == 0 {
		return fmt.Errorf("--id is required")
	}

	var resp struct {
		ID        uint64 `json:"id"`
		Name      string `json:"name"`
		CreatedAt string `json:"created_at"`
	}
	if err := getJSON(fmt.Sprintf("%s/api/v1/auctions/%d", *server, *id), &resp); err != nil {
		return err
	}
	fmt.Printf("auction %d: %q, created %s\n", resp.ID, resp.Name, resp.CreatedAt)

	var bid struct {
		Handle string `json:"handle"`
	}
	if err := getJSON(fmt.Sprintf("%s/api/v1/auctions/%d/highest-bid", *server, *id), &bid); err != nil {
		return err
	}
	fmt.Printf("highest bid handle:    %s\n", bid.Handle)

	var bidder struct {
		Handle string `json:"handle"`
	}
	if err := getJSON(fmt.Sprintf("%s/api/v1/auctions/%d/highest-bidder", *server, *id), &bidder); err != nil {
		return err
	}
	fmt.Printf("highest bidder handle: %s\n", bidder.Handle)
	return nil
}

func runDecrypt(args []string) error {
	fs := pflag.NewFlagSet("decrypt", pflag.ExitOnError)
	server := serverFlag(fs)
	handle := fs.String("handle", "", "ciphertext handle")
	principal := fs.String("principal", "", "caller identity")
	fs.Parse(args)

	if *handle == "" || *principal == "" {
		return fmt.Errorf("--handle and --principal are required")
	}

	var resp struct {
		Value string `json:"value"`
	}
	if err := postJSON(*server+"/api/v1/decrypt", *principal, map[string]string{"handle": *handle}, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Value)
	return nil
}

// fetchEnginePubKey rebuilds the engine's sealing key from its endpoint.
func fetchEnginePubKey(server string) (*bls12377.G1Affine, error) {
	var resp struct {
		X string `json:"x"`
		Y string `json:"y"`
	}
	if err := getJSON(server+"/api/v1/engine/pubkey", &resp); err != nil {
		return nil, err
	}
	xBytes, err := hex.DecodeString(resp.X)
	if err != nil || len(xBytes) != 48 {
		return nil, fmt.Errorf("invalid engine key X")
	}
	yBytes, err := hex.DecodeString(resp.Y)
	if err != nil || len(yBytes) != 48 {
		return nil, fmt.Errorf("invalid engine key Y")
	}
	var pk bls12377.G1Affine
	pk.X.SetBytes(xBytes)
	pk.Y.SetBytes(yBytes)
	return &pk, nil
}

func getJSON(url string, out interface{}) error {
	return getJSONAs(url, "", out)
}

func getJSONAs(url, principal string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if principal != "" {
		req.Header.Set("X-Principal", principal)
	}
	return do(req, out)
}

func postJSON(url, principal string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		req.Header.Set("X-Principal", principal)
	}
	return do(req, out)
}

func do(req *http.Request, out interface{}) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", errResp.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
