package core_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/repowatch/repowatch/pkg/core"
)

func ExampleScan() {
	dir, _ := os.MkdirTemp("", "core-example")
	defer os.RemoveAll(dir)
	_ = os.WriteFile(filepath.Join(dir, "server.log"), []byte("started\n"), 0644)

	findings, err := core.Scan(dir)
	if err != nil {
		fmt.Println("scan failed:", err)
		return
	}
	for _, f := range findings {
		fmt.Println(f.Rule, f.Severity)
	}
	// Output:
	// log_file low
}

func ExampleScanWithStats() {
	dir, _ := os.MkdirTemp("", "core-example")
	defer os.RemoveAll(dir)
	_ = os.WriteFile(filepath.Join(dir, "README.md"), []byte("nothing to see\n"), 0644)

	res, err := core.ScanWithStats(context.Background(), core.Config{Root: dir, Threads: 4})
	if err != nil {
		fmt.Println("scan failed:", err)
		return
	}
	fmt.Println(res.FilesScanned, len(res.Findings))
	// Output:
	// 1 0
}
