package config

// Durations are Go duration strings ("250ms", "30s").
const configSchema = `
#Duration: =~"^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"

#Config: close({
	log_level?: "debug" | "info" | "warn" | "error"
	journal?: close({
		path?: string
	})
	http?: close({
		timeout?:    #Duration
		rate_limit?: number & >=0
		burst?:      int & >=0
	})
	script?: close({
		timeout?: #Duration
	})
})
`
