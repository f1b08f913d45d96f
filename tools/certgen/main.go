// Package main writes a development CA and a server certificate signed by it
// into a directory. Point TLS_CERT/TLS_KEY at server.crt/server.key and the
// client's -ca flag at ca.crt.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/teashop/internal/certgen"
)

func main() {
	var (
		dir    string
		hosts  string
		caCert string
		caKey  string
	)
	flag.StringVar(&dir, "dir", "certs", "output directory")
	flag.StringVar(&hosts, "hosts", "localhost,127.0.0.1", "comma-separated server names and IPs")
	flag.StringVar(&caCert, "ca-cert", "", "existing CA certificate to sign with")
	flag.StringVar(&caKey, "ca-key", "", "existing CA key to sign with")
	flag.Parse()

	if err := run(dir, splitHosts(hosts), caCert, caKey); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into %s\n", dir)
}

func run(dir string, hosts []string, caCertPath, caKeyPath string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var (
		ca  *certgen.Authority
		err error
	)
	if caCertPath != "" || caKeyPath != "" {
		ca, err = certgen.LoadAuthority(caCertPath, caKeyPath)
	} else {
		ca, err = certgen.NewAuthority("Tea-shop Dev CA")
		if err == nil {
			err = ca.WriteFiles(dir)
		}
	}
	if err != nil {
		return err
	}

	certPEM, keyPEM, err := ca.IssueServer(hosts)
	if err != nil {
		return err
	}
	return certgen.WritePair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), certPEM, keyPEM)
}

func splitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
