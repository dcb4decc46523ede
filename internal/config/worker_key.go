package config

type WorkerKeyStruct struct {
	AttemptEventsQueue string
	ProctorEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AttemptEventsQueue: "attempt_events_queue",
	ProctorEventsQueue: "proctor_events_queue",
}
