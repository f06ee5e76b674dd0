// nltest runs .nlang programs through the compiler's interpreter mode and
// compares their output against golden JSON files checked in next to the
// sources.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is the recorded expectation for one source file. SourceHash pins
// the golden to the exact source it was generated from.
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Input      string    `json:"input,omitempty"`
	Result     Execution `json:"result"`
}

type FileTestResult struct {
	File    string `json:"file"`
	Status  string `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string `json:"message,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

var (
	compiler       = flag.String("compiler", "./nlc", "Path to the nlc binary under test.")
	compilerArgs   = flag.String("args", "", "Extra arguments for the compiler (space-separated).")
	testFiles      = flag.String("test-files", "tests/*.nlang", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	generateGolden = flag.Bool("generate", false, "Record golden files instead of comparing against them.")
	goldenDir      = flag.String("dir", "", "Directory for golden JSON files (defaults to the source file dir).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each program execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file)
			}
		}()
	}

	// Files with identical content only run once.
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash source file: %v", err)}
			continue
		}
		if original, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", original)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	writeJSONReport(allResults)

	for _, result := range allResults {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			os.Exit(1)
		}
	}
}

func goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if *goldenDir != "" {
		return filepath.Join(*goldenDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

// inputFor reads an optional sidecar .in file holding the program's stdin.
func inputFor(sourceFile string) string {
	data, err := os.ReadFile(strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + ".in")
	if err != nil {
		return ""
	}
	return string(data)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func testFile(file string) *FileTestResult {
	fileHash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash source file: %v", err)}
	}
	input := inputFor(file)
	result := runProgram(file, input)

	if *generateGolden {
		golden := Golden{SourceHash: fileHash, Input: input, Result: result}
		data, err := json.MarshalIndent(golden, "", "  ")
		if err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to marshal golden data: %v", err)}
		}
		path := goldenPath(file)
		if *goldenDir != "" {
			if err := os.MkdirAll(*goldenDir, 0o755); err != nil {
				return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to create %s: %v", *goldenDir, err)}
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to write golden file: %v", err)}
		}
		return &FileTestResult{File: file, Status: "PASS", Message: fmt.Sprintf("Golden file recorded at %s", path)}
	}

	goldenFile := goldenPath(file)
	data, err := os.ReadFile(goldenFile)
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("No golden file at %s (run with -generate)", goldenFile)}
	}
	var golden Golden
	if err := json.Unmarshal(data, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}
	if golden.SourceHash != fileHash {
		return &FileTestResult{File: file, Status: "FAIL", Message: fmt.Sprintf("Source changed since golden file was recorded (run with -generate to refresh %s)", goldenFile)}
	}

	var diffs strings.Builder
	if golden.Result.ExitCode != result.ExitCode {
		fmt.Fprintf(&diffs, "Exit code mismatch:\n  - want: %d\n  - got:  %d\n", golden.Result.ExitCode, result.ExitCode)
	}
	if golden.Result.Stdout != result.Stdout {
		fmt.Fprintf(&diffs, "STDOUT mismatch (-want +got):\n%s", cmp.Diff(golden.Result.Stdout, result.Stdout))
	}
	if golden.Result.Stderr != result.Stderr {
		fmt.Fprintf(&diffs, "STDERR mismatch (-want +got):\n%s", cmp.Diff(golden.Result.Stderr, result.Stderr))
	}
	if golden.Result.TimedOut != result.TimedOut {
		fmt.Fprintf(&diffs, "Timeout mismatch:\n  - want: %v\n  - got:  %v\n", golden.Result.TimedOut, result.TimedOut)
	}

	if diffs.Len() > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output or exit code mismatch", Diff: diffs.String()}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Output matches golden file"}
}

// runProgram interprets a source file with `nlc -run`, capturing its
// output and exit code.
func runProgram(sourceFile, input string) Execution {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	args := append(strings.Fields(*compilerArgs), "-run", sourceFile)
	if *verbose {
		log.Printf("[%s] %s %s", sourceFile, *compiler, strings.Join(args, " "))
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, *compiler, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	err := cmd.Run()
	result := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -2
			result.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return result
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)
		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmed, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) {
	resultsMap := make(map[string]*FileTestResult, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}
	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return
	}
	outputFile := *outputJSON
	if *goldenDir != "" {
		if err := os.MkdirAll(*goldenDir, 0o755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *goldenDir, err)
		}
		outputFile = filepath.Join(*goldenDir, *outputJSON)
	}
	if err := os.WriteFile(outputFile, jsonData, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
