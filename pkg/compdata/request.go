// Package compdata pkg/compdata/request.go
package compdata

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mfreeman451/compdata/pkg/cache"
	"github.com/mfreeman451/compdata/pkg/composite"
)

const hostVarPrefix = "vars."

// request is the per-RPC result buffer. It is created on entry,
// mutated only by the pipeline stages and their fan-out callbacks, and
// dropped once the reply is sent. The mutex guards the maps during the
// concurrent cache fan-outs; the digest stages run single-threaded
// between barriers.
type request struct {
	comp     *composite.Composite
	inst     *composite.Instance
	cache    cache.Service
	hosts    []string
	period   int
	excludes map[string][]*regexp.Regexp
	now      int64

	mu          sync.Mutex
	scans       map[string]map[string]*Tree
	scanVals    map[string]map[string]*Tree
	scanExclude map[string]map[string]bool
	combined    map[string]*Tree
	vals        map[string]map[string]*Tree
	hostVars    map[string]map[string]interface{}
	final       map[string][]Row

	warnedFctns map[string]bool
}

func newRequest(comp *composite.Composite, inst *composite.Instance, svc cache.Service,
	hosts []string, period int, excludes map[string][]*regexp.Regexp) *request {
	return &request{
		comp:        comp,
		inst:        inst,
		cache:       svc,
		hosts:       hosts,
		period:      period,
		excludes:    excludes,
		now:         time.Now().Unix(),
		scans:       make(map[string]map[string]*Tree),
		scanVals:    make(map[string]map[string]*Tree),
		scanExclude: make(map[string]map[string]bool),
		combined:    make(map[string]*Tree),
		vals:        make(map[string]map[string]*Tree),
		hostVars:    make(map[string]map[string]interface{}),
		final:       make(map[string][]Row),
		warnedFctns: make(map[string]bool),
	}
}

// run drives the five-stage pipeline. Each stage fully completes
// before the next starts; the digests assume the previous stage's
// buffer is final.
func (r *request) run(ctx context.Context) map[string][]Row {
	r.doScans(ctx)
	r.digestScans()
	r.doVals(ctx)
	r.digestVals()
	r.doFunctions()

	for _, host := range r.hosts {
		if _, ok := r.final[host]; !ok {
			r.final[host] = []Row{}
		}
	}

	return r.final
}

// doScans fans out one cache call per scan and folds the results into
// per-scan index trees.
func (r *request) doScans(ctx context.Context) {
	var wg sync.WaitGroup

	for i := range r.inst.Scans {
		scan := &r.inst.Scans[i]

		// The wildcard position takes the scan's variable name so the
		// OID map sees an identifier token.
		pattern := strings.Replace(scan.OID, "*", scan.Var, 1)
		oidMap := MapOID(pattern)

		wg.Add(1)

		go func() {
			defer wg.Done()

			results, err := r.cache.Get(ctx, r.hosts, oidMap.OIDBase())
			if err != nil {
				log.Printf("Scan %s failed for composite %s: %v", scan.ID, r.comp.ID, err)
				return
			}

			r.scanCB(scan, oidMap, results)
		}()
	}

	wg.Wait()
}

// scanCB records exclusions and folds the surviving OIDs into a blank
// tree (row skeleton source) and a scan tree (the scanned strings).
// Exclusion matches on the OID's value, never on its key. A scan
// marked exclude-only contributes to the exclusion set and nothing
// else.
func (r *request) scanCB(scan *composite.Scan, oidMap *OIDMap, results cache.Results) {
	excludes := r.excludes[scan.Var]

	r.mu.Lock()
	defer r.mu.Unlock()

	for host, data := range results {
		kept := make(cache.HostData)

		for oid, sample := range data {
			if sample == nil || sample.Value == nil {
				continue
			}

			if matchesAny(excludes, toString(sample.Value)) {
				if r.scanExclude[host] == nil {
					r.scanExclude[host] = make(map[string]bool)
				}

				r.scanExclude[host][oid] = true

				continue
			}

			if scan.ExcludeOnly {
				continue
			}

			if r.scanExclude[host][oid] {
				continue
			}

			kept[oid] = sample
		}

		if scan.ExcludeOnly || len(kept) == 0 {
			continue
		}

		if r.scans[host] == nil {
			r.scans[host] = make(map[string]*Tree)
			r.scanVals[host] = make(map[string]*Tree)
		}

		r.scans[host][scan.ID] = TransformOIDs(kept, oidMap, ModeBlank)
		r.scanVals[host][scan.ID] = TransformOIDs(kept, oidMap, ModeScan)
	}
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}

	return false
}

// digestScans combines each host's scans into one tree. The scan with
// the deepest legend is the main scan; every preceding legend entry
// names a dependent scan whose keys are unioned in. Combination is
// additive only.
func (r *request) digestScans() {
	for host, hostScans := range r.scans {
		var main *Tree

		// Document order breaks legend-length ties deterministically.
		for i := range r.inst.Scans {
			tree, ok := hostScans[r.inst.Scans[i].ID]
			if !ok {
				continue
			}

			if main == nil || len(tree.Legend) > len(main.Legend) {
				main = tree
			}
		}

		if main == nil {
			continue
		}

		combined := main.deepCopy()

		for pos := 0; pos < len(combined.Legend)-1; pos++ {
			dep, ok := hostScans[combined.Legend[pos]]
			if !ok {
				continue
			}

			combined.Root.mergeKeys(dep.Root)
		}

		r.combined[host] = combined
	}
}

// doVals runs the host-variable fetch and every val fetch
// concurrently, then waits for all of them.
func (r *request) doVals(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		r.fetchHostVars(ctx)
	}()

	for i := range r.inst.Vals {
		val := &r.inst.Vals[i]

		if val.OID == "" {
			r.valFromScan(val)
			continue
		}

		oidMap := MapOID(val.OID)

		// Rate conversion is per host, so each host gets its own call.
		for _, host := range r.hosts {
			wg.Add(1)

			go func(host string) {
				defer wg.Done()
				r.fetchVal(ctx, host, val, oidMap)
			}(host)
		}
	}

	wg.Wait()
}

// fetchHostVars installs every vars.* sample as a per-host variable.
func (r *request) fetchHostVars(ctx context.Context) {
	results, err := r.cache.Get(ctx, r.hosts, hostVarPrefix+"*")
	if err != nil {
		log.Printf("Host variable fetch failed for composite %s: %v", r.comp.ID, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for host, data := range results {
		for oid, sample := range data {
			if sample == nil || sample.Value == nil {
				continue
			}

			if r.hostVars[host] == nil {
				r.hostVars[host] = make(map[string]interface{})
			}

			r.hostVars[host][strings.TrimPrefix(oid, hostVarPrefix)] = sample.Value
		}
	}
}

// valFromScan resolves a val declared with var instead of oid: either
// the node identity or a clone of a scan's value tree.
func (r *request) valFromScan(val *composite.Val) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if val.Var == "node" {
		for _, host := range r.hosts {
			r.storeValLocked(host, val.ID, &Tree{
				Root: &Node{Sample: &cache.Sample{Value: host}},
			})
		}

		return
	}

	if r.inst.FindScan(val.Var) == nil {
		log.Printf("Composite %s val %s: %v: %s", r.comp.ID, val.ID, errUnknownScanVar, val.Var)
		return
	}

	for _, host := range r.hosts {
		if tree, ok := r.scanVals[host][val.Var]; ok {
			r.storeValLocked(host, val.ID, tree.deepCopy())
		}
	}
}

// fetchVal issues the per-host cache call for one OID-backed val and
// folds, trims and stores the result.
func (r *request) fetchVal(ctx context.Context, host string, val *composite.Val, oidMap *OIDMap) {
	var (
		results cache.Results
		err     error
	)

	if val.Type == "rate" {
		results, err = r.cache.GetRate(ctx, []string{host}, r.period, oidMap.OIDBase())
	} else {
		results, err = r.cache.Get(ctx, []string{host}, oidMap.OIDBase())
	}

	if err != nil {
		log.Printf("Val %s fetch failed for host %s: %v", val.ID, host, err)
		return
	}

	// Rows missing value or time never contribute.
	complete := make(cache.HostData)

	for oid, sample := range results[host] {
		if sample.Complete() {
			complete[oid] = sample
		}
	}

	tree := TransformOIDs(complete, oidMap, ModeDefault)

	r.mu.Lock()
	defer r.mu.Unlock()

	if combined, ok := r.combined[host]; ok {
		tree.Root.trim(combined.Root)
	} else {
		// No scan survived for this host; nothing to attach rows to.
		tree.Root.Children = nil
	}

	r.storeValLocked(host, val.ID, tree)
}

func (r *request) storeValLocked(host, valID string, tree *Tree) {
	if r.vals[host] == nil {
		r.vals[host] = make(map[string]*Tree)
	}

	r.vals[host][valID] = tree
}

// skelNode mirrors the combined scan tree with a mutable row at every
// legend-depth leaf.
type skelNode struct {
	children map[string]*skelNode
	row      Row
}

func buildSkeleton(node *Node, depth, legendLen int) *skelNode {
	if depth == legendLen {
		return &skelNode{row: Row{}}
	}

	sn := &skelNode{}

	if len(node.Children) > 0 {
		sn.children = make(map[string]*skelNode, len(node.Children))
		for key, child := range node.Children {
			sn.children[key] = buildSkeleton(child, depth+1, legendLen)
		}
	}

	return sn
}

// digestVals walks each host's value trees against a row skeleton
// cloned from the combined scan tree, then flattens the skeleton into
// the ordered row array.
func (r *request) digestVals() {
	for _, host := range r.hosts {
		combined, ok := r.combined[host]
		if !ok {
			r.final[host] = []Row{}
			continue
		}

		skeleton := buildSkeleton(combined.Root, 0, len(combined.Legend))

		for i := range r.inst.Vals {
			val := &r.inst.Vals[i]

			tree, ok := r.vals[host][val.ID]
			if !ok {
				continue
			}

			r.applyVal(skeleton, tree.Root, val.ID)
		}

		r.final[host] = r.flattenSkeleton(skeleton)
	}
}

// applyVal assigns a value tree into the skeleton in lockstep. A value
// node that is already a leaf while the skeleton still has depth
// propagates its sample to every row beneath.
func (r *request) applyVal(sn *skelNode, vn *Node, valID string) {
	if sn == nil || vn == nil {
		return
	}

	if sn.row != nil {
		r.assignLeaf(sn.row, vn, valID)
		return
	}

	if vn.isLeaf() {
		if vn.Sample != nil {
			r.propagate(sn, vn, valID)
		}

		return
	}

	for key, sc := range sn.children {
		r.applyVal(sc, vn.Children[key], valID)
	}
}

func (r *request) propagate(sn *skelNode, vn *Node, valID string) {
	if sn.row != nil {
		r.assignLeaf(sn.row, vn, valID)
		return
	}

	for _, sc := range sn.children {
		r.propagate(sc, vn, valID)
	}
}

func (r *request) assignLeaf(row Row, vn *Node, valID string) {
	if vn.Sample == nil || vn.Sample.Value == nil {
		return
	}

	row[valID] = vn.Sample.Value

	if vn.Sample.Time != nil {
		row.setTime(int64(*vn.Sample.Time))
	}
}

// flattenSkeleton emits every leaf that picked up at least one value,
// ordered by its index path for deterministic output. A row that no
// sample stamped gets the request wall-clock.
func (r *request) flattenSkeleton(sn *skelNode) []Row {
	rows := []Row{}

	var walk func(n *skelNode)

	walk = func(n *skelNode) {
		if n.row != nil {
			if len(n.row) > 0 {
				n.row.setTime(r.now)
				rows = append(rows, n.row)
			}

			return
		}

		keys := make([]string, 0, len(n.children))
		for key := range n.children {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			walk(n.children[key])
		}
	}

	walk(sn)

	return rows
}

// doFunctions applies each val's transform chain to every row, in
// document order of the fctn children. An unknown function name is
// logged once per (val, host), turns the value undefined and aborts
// the chain for that row.
func (r *request) doFunctions() {
	fMap := make(map[string][]composite.Fctn)

	for i := range r.inst.Vals {
		if len(r.inst.Vals[i].Fctns) > 0 {
			fMap[r.inst.Vals[i].ID] = r.inst.Vals[i].Fctns
		}
	}

	if len(fMap) == 0 {
		return
	}

	for _, host := range r.hosts {
		for _, row := range r.final[host] {
			for i := range r.inst.Vals {
				valID := r.inst.Vals[i].ID

				fctns, ok := fMap[valID]
				if !ok {
					continue
				}

				if _, present := row[valID]; !present {
					continue
				}

				r.applyChain(host, valID, row, fctns)
			}
		}
	}
}

func (r *request) applyChain(host, valID string, row Row, fctns []composite.Fctn) {
	value := row[valID]

	for i := range fctns {
		fctn := &fctns[i]

		fn, ok := scalarFuncs[fctn.Name]
		if !ok {
			key := valID + "\x00" + host

			if !r.warnedFctns[key] {
				r.warnedFctns[key] = true
				log.Printf("Composite %s val %s host %s: %v: %s",
					r.comp.ID, valID, host, errUnknownFunction, fctn.Name)
			}

			value = nil

			break
		}

		ctx := &fctnContext{
			fctn:     fctn,
			row:      row,
			host:     host,
			hostVars: r.hostVars[host],
			warn: func(token string) {
				log.Printf("Composite %s val %s: unknown RPN token %q", r.comp.ID, valID, token)
			},
		}

		value = fn(value, fctn.Value, ctx)
	}

	row[valID] = value
}
