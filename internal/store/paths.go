package store

import "fmt"

func CheckpointPath(hash string) string { return "sessions/" + hash + "/checkpoint" }

func ResultPath(hash string) string { return "cache/users/" + hash + "/result" }

func BatchPath(hash string, n int) string { return fmt.Sprintf("sessions/%s/batches/%d", hash, n) }

func StatusPath(hash string) string { return "status/" + hash }
