// Package media wraps the ffmpeg and ffprobe command line tools behind a
// small client used by the processing modules.
//
// Every operation builds an explicit argument list, runs the tool through an
// Executor, and verifies the expected output file exists afterwards. The
// Executor seam lets tests substitute a stub instead of spawning processes.
// Tool failures come back wrapped as external tool errors carrying the tail
// of the tool's output so dispatch can surface a readable reason per file.
package media
