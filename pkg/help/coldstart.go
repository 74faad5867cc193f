package help

const ColdstartYAML = `# tagcount Quick Start

strategies:
  tree: "Pairwise merge of per-worker counts (default)"
  sharded: "Key space split by hash, one goroutine per shard"
  locked: "Per-worker counts folded into one mutex-guarded map"
  sequential: "Single-threaded reference path (top --sequential)"

commands:
  fetch_datasets: |
    tagcount fetch                       # download the WHO tweet CSVs into data/
    tagcount fetch --check               # verify checksums only

  top: |
    tagcount top                         # configured datasets, K=10, marker "#"
    tagcount top tweets.csv -k 25 --strategy sharded --workers 8
    tagcount top page.html --readability --format yaml

  verify: |
    tagcount verify tweets.csv           # sequential vs every parallel strategy

  bench: |
    tagcount bench -n 10                 # results.csv + summary.csv per run
    tagcount bench --algorithm sequential --algorithm parallel-tree

  inspect: |
    tagcount corpus tweets.csv --sample 5
    tagcount runs
    tagcount run 3 --category tag

inputs:
  - ".csv/.tsv: header required, text column 'text', duplicate 'id_str' rows collapsed"
  - ".html/.htm: one record per <p> (html_selector), or one per page with --readability"
  - "anything else: one record per line"
  - ".gz suffix: decompressed on the fly"
  - "--lang en --lang es: keep only records detected in those languages"

key_files:
  - "tagcount.yaml (config, optional)"
  - "out/index.yaml (all runs, newest first)"
  - "out/runs/{run-id}/top_words_hashtags.txt"
  - "out/runs/{run-id}/ranking.yaml"
  - "out/runs/{run-id}/summary.json"
  - "out/runs/{run-id}/results.csv, summary.csv (bench only)"

ranking_rules:
  - "Tokens are whitespace separated and case sensitive"
  - "A token starting with the tag marker is a tag, everything else a word"
  - "Higher count first; equal counts in byte-wise lexicographic order"
  - "Results do not depend on strategy, worker count or scheduling"

error_behavior:
  - "Rows with invalid UTF-8 are rejected and counted in load stats"
  - "Bad configuration exits 2 before any work"
  - "verify exits 1 when any strategy disagrees with the sequential path"
`
