package pypi

import (
	"errors"
	"sync"

	"github.com/frederic-klein/pysetupgen/internal/manifest"
	"github.com/frederic-klein/pysetupgen/internal/pyver"
)

// VerifyResult reports whether one pinned requirement is satisfiable on
// the index.
type VerifyResult struct {
	Req         manifest.Requirement
	Exists      bool
	Satisfiable bool
	Latest      string
	Err         error
}

// VerifyAll checks requirements against the index with a fixed-size worker
// pool. Results arrive in completion order.
func (c *Client) VerifyAll(reqs []manifest.Requirement, workers int) []VerifyResult {
	if workers < 1 {
		workers = 1
	}

	jobChan := make(chan manifest.Requirement, len(reqs))
	resultChan := make(chan VerifyResult, len(reqs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobChan {
				resultChan <- c.verifyOne(req)
			}
		}()
	}

	for _, req := range reqs {
		jobChan <- req
	}
	close(jobChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]VerifyResult, 0, len(reqs))
	for result := range resultChan {
		results = append(results, result)
	}

	return results
}

func (c *Client) verifyOne(req manifest.Requirement) VerifyResult {
	info, err := c.Project(req.Name)
	if errors.Is(err, ErrNotFound) {
		return VerifyResult{Req: req}
	}
	if err != nil {
		return VerifyResult{Req: req, Err: err}
	}

	result := VerifyResult{Req: req, Exists: true}
	if latest, ok := pyver.Latest(info.Releases); ok {
		result.Latest = latest.String()
	}

	if req.Min == "" {
		result.Satisfiable = true
		return result
	}
	for _, release := range info.Releases {
		// Release tags the version grammar cannot place are skipped.
		ok, err := pyver.AtLeast(release, req.Min)
		if err != nil {
			continue
		}
		if ok {
			result.Satisfiable = true
			break
		}
	}
	return result
}
