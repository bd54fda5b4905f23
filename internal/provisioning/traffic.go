package provisioning

import (
	"fmt"
	"sort"
)

// Cutover returns the traffic split that sends all requests to deployment
// and whether it differs from traffic. Only a deployment receiving no
// traffic (a zero or missing entry) is cut over; every other deployment in
// the split drops to zero. The input map is not modified.
func Cutover(traffic map[string]int, deployment string) (map[string]int, bool) {
	if traffic[deployment] != 0 {
		return copyTraffic(traffic), false
	}

	next := make(map[string]int, len(traffic)+1)
	for name := range traffic {
		next[name] = 0
	}
	next[deployment] = 100
	return next, true
}

// ValidateTraffic checks that every share is a percentage and that the
// shares sum to 100, or are all zero before the first cutover.
func ValidateTraffic(traffic map[string]int) error {
	names := make([]string, 0, len(traffic))
	for name := range traffic {
		names = append(names, name)
	}
	sort.Strings(names)

	sum := 0
	for _, name := range names {
		share := traffic[name]
		if share < 0 || share > 100 {
			return fmt.Errorf("traffic share of %s is %d, must be between 0 and 100", name, share)
		}
		sum += share
	}
	if sum != 0 && sum != 100 {
		return fmt.Errorf("traffic shares sum to %d, must be 100", sum)
	}
	return nil
}

// TrafficPhase routes all endpoint traffic to the new deployment when it
// receives none yet. A deployment that already has part of the traffic is
// left alone.
type TrafficPhase struct{}

// Name implements Phase.
func (TrafficPhase) Name() string { return "traffic" }

// Provision implements Phase.
func (TrafficPhase) Provision(ctx *Context) error {
	target, err := targetSettings(ctx)
	if err != nil {
		return err
	}
	if !target.Cutover {
		ctx.Observer.Printf("[%s] cutover disabled, leaving traffic as is", ctx.phase)
		return nil
	}

	endpoint, err := ctx.Serving.GetEndpoint(ctx, target.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to read traffic of endpoint %s: %w", target.Endpoint, err)
	}
	ctx.State.Endpoint = endpoint

	share := endpoint.Traffic[target.Deployment]
	if share > 0 && share < 100 {
		LogValidationWarning(ctx.Observer, ctx.phase, "traffic",
			fmt.Sprintf("deployment %s already receives %d%% of %s, leaving the split unchanged", target.Deployment, share, target.Endpoint))
		return nil
	}

	next, changed := Cutover(endpoint.Traffic, target.Deployment)
	if !changed {
		ctx.Observer.Printf("[%s] deployment %s already receives 100%% of traffic", ctx.phase, target.Deployment)
		return nil
	}
	if err := ValidateTraffic(next); err != nil {
		return err
	}

	update := *endpoint
	update.Traffic = next
	updated, err := ctx.Serving.UpdateEndpoint(ctx, update)
	if err != nil {
		return fmt.Errorf("failed to update traffic of endpoint %s: %w", target.Endpoint, err)
	}
	ctx.Metrics.recordTrafficUpdate()
	ctx.Observer.Printf("[%s] routed 100%% of %s traffic to %s", ctx.phase, target.Endpoint, target.Deployment)

	ctx.State.Endpoint = updated
	return nil
}

func copyTraffic(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
